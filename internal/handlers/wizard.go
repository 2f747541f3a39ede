package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/prompt"
	"nano-banana-studio/internal/session"
)

const callbackPrefix = "nb"

const (
	menuMain     = "main"
	menuAdType   = "ad"
	menuIndustry = "industry"
	menuTone     = "tone"
)

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	sess := h.sessions.GetOrCreate(sessionKey(chatID, ownerID))

	menu := menuMain
	switch action {
	case "menu":
		if len(args) >= 1 {
			menu = args[0]
		}
	case "ad", "industry", "tone":
		if len(args) >= 1 {
			value := args[0]
			sess.Update(func(sel *prompt.Selection) {
				switch action {
				case "ad":
					sel.AdType = value
				case "industry":
					sel.Industry = value
				case "tone":
					sel.ToneStyle = value
				}
				sel.CustomPrompt = ""
			})
		}
	case "clear_custom":
		sess.Update(func(sel *prompt.Selection) { sel.CustomPrompt = "" })
	case "name":
		h.setAwaiting(sess.ID, awaitName)
		_ = h.tg.AnswerCallback(q.ID, "Send the product name.", false)
		return h.tg.SendText(chatID, "✏️ Send the product or brand name.")
	case "prompt":
		_ = h.tg.AnswerCallback(q.ID, "Prompt", false)
		text := prompt.ResolvePrompt(sess.Selection())
		if text == "" {
			return h.tg.SendText(chatID, "❌ Choose an ad type, industry and tone first.")
		}
		return h.tg.SendText(chatID, text)
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, ownerID, sess, false)
	case "regenerate":
		_ = h.tg.AnswerCallback(q.ID, "Regenerating…", false)
		return h.generate(ctx, chatID, ownerID, sess, true)
	case "download":
		_ = h.tg.AnswerCallback(q.ID, "Downloading…", false)
		return h.download(ctx, chatID, sess)
	case "reset":
		h.setAwaiting(sess.ID, "")
		sess.Reset()
	case "close":
		h.setAwaiting(sess.ID, "")
		_ = h.tg.AnswerCallback(q.ID, "Closed", false)
		return nil
	}

	_ = h.tg.AnswerCallback(q.ID, "OK", false)
	return h.renderMenu(chatID, ownerID, sess, msgID, menu)
}

func (h *Handler) renderWizard(chatID int64, userID int64, sess *session.Session, messageID int, edit bool) error {
	if !edit {
		messageID = 0
	}
	return h.renderMenu(chatID, userID, sess, messageID, menuMain)
}

func (h *Handler) renderMenu(chatID int64, userID int64, sess *session.Session, messageID int, menu string) error {
	sel := sess.Selection()
	text := wizardText(sel, sess.Controller.Snapshot())
	kb := wizardKeyboard(userID, sel, menu)

	if messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.setMenuMessage(sess.ID, msgID)
	return nil
}

func wizardText(sel prompt.Selection, st imagegen.State) string {
	adType := "not set"
	if ad, ok := prompt.LookupAdType(sel.AdType); ok {
		adType = fmt.Sprintf("%s (%s)", ad.Title, ad.AspectRatio)
	}
	industry := "not set"
	if name, ok := prompt.IndustryName(sel.Industry); ok {
		industry = name
	}
	tone := "not set"
	if name, ok := prompt.ToneName(sel.ToneStyle); ok {
		tone = name
	}

	var b strings.Builder
	b.WriteString("🍌 Nano Banana Content Prompt Generator\n\n")
	fmt.Fprintf(&b, "Ad type: %s\n", adType)
	fmt.Fprintf(&b, "Industry: %s\n", industry)
	fmt.Fprintf(&b, "Product: %s\n", orDash(sel.ProductName))
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	if custom := strings.TrimSpace(sel.CustomPrompt); custom != "" {
		b.WriteString("Custom prompt: " + truncateLine(custom, 80) + "\n")
	}
	if st.Status == imagegen.StatusLoading {
		b.WriteString("\n⏳ Generating your AI image…\n")
	}

	if !sel.IsComplete() && strings.TrimSpace(sel.CustomPrompt) == "" {
		b.WriteString("\n🎨 Fill in all fields to generate your customized AI prompt.\n")
	} else {
		b.WriteString("\nPress 🎨 Generate, or send any text to use it as the prompt.\n")
	}

	return strings.TrimSpace(b.String())
}

func wizardKeyboard(ownerID int64, sel prompt.Selection, menu string) tgbotapi.InlineKeyboardMarkup {
	switch menu {
	case menuAdType:
		return optionKeyboard(ownerID, "ad", prompt.AdTypes(), sel.AdType)
	case menuIndustry:
		return optionKeyboard(ownerID, "industry", prompt.Industries(), sel.Industry)
	case menuTone:
		return optionKeyboard(ownerID, "tone", prompt.ToneStyles(), sel.ToneStyle)
	default:
		return mainKeyboard(ownerID, sel)
	}
}

func mainKeyboard(ownerID int64, sel prompt.Selection) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData(checked("Ad type", sel.AdType != ""), cb(ownerID, "menu", menuAdType)),
			tgbotapi.NewInlineKeyboardButtonData(checked("Industry", sel.Industry != ""), cb(ownerID, "menu", menuIndustry)),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData(checked("Tone", sel.ToneStyle != ""), cb(ownerID, "menu", menuTone)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Product name", cb(ownerID, "name")),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("📄 Prompt", cb(ownerID, "prompt")),
			tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
		},
	}

	if strings.TrimSpace(sel.CustomPrompt) != "" {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Clear custom prompt", cb(ownerID, "clear_custom")),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
		tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
	})

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionKeyboard(ownerID int64, action string, options []prompt.NamedOption, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, opt := range options {
		label := opt.Name
		if opt.AspectRatio != "" {
			label += " " + opt.AspectRatio
		}
		if opt.Key == current {
			label = "✅ " + label
		}

		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, action, opt.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", menuMain)),
	})

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🔁 Regenerate", cb(ownerID, "regenerate")),
			tgbotapi.NewInlineKeyboardButtonData("⬇️ Download", cb(ownerID, "download")),
		},
	)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func checked(label string, ok bool) string {
	if ok {
		return "✅ " + label
	}
	return label
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not set"
	}
	return s
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
