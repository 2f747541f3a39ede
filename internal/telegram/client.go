package telegram

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxTextBytes    = 4096
	maxCaptionBytes = 1024
)

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
}

type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{bot: bot, logger: logger}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

type Keyboard = tgbotapi.InlineKeyboardMarkup

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	} else {
		u.Timeout = 30
	}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto))
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, maxTextBytes) {
		msg := tgbotapi.NewMessage(chatID, p)
		if _, err := c.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) SendTextWithKeyboard(chatID int64, text string, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncateByBytes(text, maxTextBytes))
	msg.ReplyMarkup = kb
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditTextWithKeyboard(chatID int64, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, truncateByBytes(text, maxTextBytes), kb)
	_, err := c.bot.Request(edit)
	return err
}

func (c *Client) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := c.bot.Request(cb)
	return err
}

func (c *Client) SendPhoto(chatID int64, name string, data []byte, caption string, kb *Keyboard) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if caption != "" {
		photo.Caption = truncateByBytes(caption, maxCaptionBytes)
	}
	if kb != nil {
		photo.ReplyMarkup = *kb
	}
	_, err := c.bot.Send(photo)
	return err
}

// SendDocument delivers the file uncompressed, which is how the bot "saves" a download.
func (c *Client) SendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if caption != "" {
		doc.Caption = truncateByBytes(caption, maxCaptionBytes)
	}
	_, err := c.bot.Send(doc)
	return err
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len(string(r))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
