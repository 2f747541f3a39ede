package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nano-banana-studio/internal/download"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/prompt"
	"nano-banana-studio/internal/session"
	"nano-banana-studio/internal/telegram"
)

// Messenger is the slice of the Telegram client the wizard talks through.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhoto(chatID int64, name string, data []byte, caption string, kb *telegram.Keyboard) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
}

type Options struct {
	Telegram  Messenger
	Sessions  *session.Store
	Downloads *download.Helper
	Logger    *slog.Logger
}

type Handler struct {
	tg        Messenger
	sessions  *session.Store
	downloads *download.Helper
	logger    *slog.Logger

	mu       sync.Mutex
	awaiting map[string]string
	menus    map[string]int
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	downloads := opts.Downloads
	if downloads == nil {
		downloads = download.New(download.Options{Logger: logger})
	}

	return &Handler{
		tg:        opts.Telegram,
		sessions:  opts.Sessions,
		downloads: downloads,
		logger:    logger,
		awaiting:  make(map[string]string),
		menus:     make(map[string]int),
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message) error {
	sess := h.sessions.GetOrCreate(sessionKey(chatID, userID))

	switch msg.Command() {
	case "start", "new":
		h.setAwaiting(sess.ID, "")
		sess.Reset()
		return h.renderWizard(chatID, userID, sess, 0, false)
	case "help":
		return h.tg.SendText(chatID,
			"🍌 Nano Banana\n\n"+
				"Pick an ad type, industry and tone, then press Generate.\n\n"+
				"Commands:\n"+
				"/start - Open the ad builder\n"+
				"/name <product> - Set the product or brand name\n"+
				"/prompt - Show the composed prompt\n"+
				"/image <text> - Generate from your own prompt\n"+
				"/cancel - Stop the current generation",
		)
	case "name":
		name := strings.TrimSpace(msg.CommandArguments())
		if name == "" {
			h.setAwaiting(sess.ID, awaitName)
			return h.tg.SendText(chatID, "✏️ Send the product or brand name.")
		}
		sess.Update(func(sel *prompt.Selection) { sel.ProductName = name })
		return h.renderWizard(chatID, userID, sess, h.menuMessage(sess.ID), true)
	case "prompt":
		text := prompt.ResolvePrompt(sess.Selection())
		if text == "" {
			return h.tg.SendText(chatID, "❌ Choose an ad type, industry and tone first.")
		}
		return h.tg.SendText(chatID, text)
	case "image":
		custom := strings.TrimSpace(msg.CommandArguments())
		if custom == "" {
			return h.tg.SendText(chatID, "❌ Describe the image.\nExample: /image banana surfing a neon wave")
		}
		sess.Update(func(sel *prompt.Selection) { sel.CustomPrompt = custom })
		return h.generate(ctx, chatID, userID, sess, false)
	case "cancel":
		h.setAwaiting(sess.ID, "")
		if sess.Controller.Cancel() {
			return h.tg.SendText(chatID, "⏹ Generation canceled.")
		}
		return h.tg.SendText(chatID, "Nothing to cancel.")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sess := h.sessions.GetOrCreate(sessionKey(chatID, userID))

	switch h.takeAwaiting(sess.ID) {
	case awaitName:
		sess.Update(func(sel *prompt.Selection) { sel.ProductName = text })
		return h.renderWizard(chatID, userID, sess, h.menuMessage(sess.ID), true)
	default:
		// Free text acts like the custom prompt box: it wins over the composed prompt.
		sess.Update(func(sel *prompt.Selection) { sel.CustomPrompt = text })
		return h.generate(ctx, chatID, userID, sess, false)
	}
}

func (h *Handler) generate(ctx context.Context, chatID int64, userID int64, sess *session.Session, regenerate bool) error {
	var err error
	if regenerate {
		_, err = sess.Controller.Regenerate(ctx)
	} else {
		_, err = sess.Controller.Generate(ctx, prompt.ResolvePrompt(sess.Selection()))
	}

	switch {
	case errors.Is(err, imagegen.ErrEmptyPrompt), errors.Is(err, imagegen.ErrNotReady):
		return h.tg.SendText(chatID, "❌ Choose an ad type, industry and tone first, or send your own prompt.")
	case errors.Is(err, imagegen.ErrInProgress):
		return h.tg.SendText(chatID, "⏳ Still generating the previous image…")
	case err != nil:
		return err
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "🎨 Generating your AI image…")

	st, err := sess.Controller.Wait(ctx)
	if err != nil {
		h.logger.Warn("image wait interrupted", "session", sess.ID, "err", err)
		return h.tg.SendText(chatID, "⌛ The image is taking too long. Press Generate again later.")
	}

	if st.Status == imagegen.StatusReady && st.Image != nil {
		sel := sess.Selection()
		kb := resultKeyboard(userID)
		name := download.FileName(sel.ProductName, st.Image.MimeType, time.Now())
		if err := h.tg.SendPhoto(chatID, name, st.Image.Data, captionFor(sess.Notifications.Drain()), &kb); err != nil {
			return err
		}
		return nil
	}

	return h.flushNotifications(chatID, sess)
}

func (h *Handler) download(ctx context.Context, chatID int64, sess *session.Session) error {
	st := sess.Controller.Snapshot()
	if st.Status != imagegen.StatusReady || st.Image == nil {
		return h.tg.SendText(chatID, "❌ Generate an image first.")
	}

	sink := notify.NewRecorder(5)
	_, err := h.downloads.Download(ctx, st.Image.URL, sess.Selection().ProductName, download.Target{
		Saver:    &chatSaver{tg: h.tg, chatID: chatID},
		Opener:   &chatOpener{tg: h.tg, chatID: chatID},
		Notifier: sink,
	})
	if err != nil {
		h.logger.Error("download failed", "session", sess.ID, "err", err)
	}

	for _, n := range sink.Drain() {
		_ = h.tg.SendText(chatID, formatNotification(n))
	}
	return nil
}

func (h *Handler) flushNotifications(chatID int64, sess *session.Session) error {
	for _, n := range sess.Notifications.Drain() {
		if err := h.tg.SendText(chatID, formatNotification(n)); err != nil {
			return err
		}
	}
	return nil
}

type chatSaver struct {
	tg     Messenger
	chatID int64
}

func (s *chatSaver) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	if err := s.tg.SendDocument(s.chatID, name, data, ""); err != nil {
		return "", fmt.Errorf("send document: %w", err)
	}
	return name, nil
}

type chatOpener struct {
	tg     Messenger
	chatID int64
}

func (o *chatOpener) Open(_ context.Context, rawURL string) error {
	return o.tg.SendText(o.chatID, "🔗 "+rawURL)
}

func formatNotification(n notify.Notification) string {
	icon := "✅"
	switch n.Variant {
	case notify.VariantWarning:
		icon = "⚠️"
	case notify.VariantDestructive:
		icon = "❌"
	}
	if n.Description == "" {
		return icon + " " + n.Title
	}
	return icon + " " + n.Title + " " + n.Description
}

func captionFor(notes []notify.Notification) string {
	if len(notes) == 0 {
		return ""
	}
	return formatNotification(notes[len(notes)-1])
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

const awaitName = "name"

func (h *Handler) setAwaiting(key, what string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if what == "" {
		delete(h.awaiting, key)
		return
	}
	h.awaiting[key] = what
}

func (h *Handler) takeAwaiting(key string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	what := h.awaiting[key]
	delete(h.awaiting, key)
	return what
}

func (h *Handler) menuMessage(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.menus[key]
}

func (h *Handler) setMenuMessage(key string, messageID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.menus[key] = messageID
}
