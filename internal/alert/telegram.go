package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"

	httpclient "blendguard/pkg/http"
)

type TelegramChannel struct {
	botToken string
	chatID   string
	client   *httpclient.Client
}

// NewTelegramChannel creates a channel posting through the Bot API at apiURL
func NewTelegramChannel(apiURL, botToken, chatID string) *TelegramChannel {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &TelegramChannel{
		botToken: botToken,
		chatID:   chatID,
		client:   httpclient.NewClient(strings.TrimRight(apiURL, "/"), httpclient.DefaultOptions),
	}
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

type inlineButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type sendMessageRequest struct {
	ChatID                string      `json:"chat_id"`
	Text                  string      `json:"text"`
	ParseMode             string      `json:"parse_mode"`
	DisableWebPagePreview bool        `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           interface{} `json:"reply_markup,omitempty"`
}

func (t *TelegramChannel) Send(ctx context.Context, alert AlertPayload) error {
	chatID := t.chatID
	if alert.Recipient != "" {
		chatID = alert.Recipient
	}
	if t.botToken == "" || chatID == "" {
		return nil
	}

	req := sendMessageRequest{
		ChatID:                chatID,
		Text:                  telegramText(alert),
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	}
	if len(alert.Buttons) > 0 {
		req.ReplyMarkup = map[string]interface{}{"inline_keyboard": inlineKeyboard(alert.Buttons)}
	}

	if _, err := t.client.PostJSON(ctx, fmt.Sprintf("/bot%s/sendMessage", t.botToken), req); err != nil {
		// the path embeds the token, so only the status travels upward
		return fmt.Errorf("telegram sendMessage failed: %w", redact(err, t.botToken))
	}
	return nil
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
}

// AnswerCallback acknowledges an inline-button press
func (t *TelegramChannel) AnswerCallback(ctx context.Context, callbackID string) error {
	if t.botToken == "" {
		return nil
	}
	req := answerCallbackRequest{CallbackQueryID: callbackID}
	if _, err := t.client.PostJSON(ctx, fmt.Sprintf("/bot%s/answerCallbackQuery", t.botToken), req); err != nil {
		return fmt.Errorf("telegram answerCallbackQuery failed: %w", redact(err, t.botToken))
	}
	return nil
}

func telegramText(alert AlertPayload) string {
	if alert.Raw {
		return alert.Message
	}

	icon := "ℹ️"
	switch alert.Level {
	case Warning:
		icon = "⚠️"
	case Error:
		icon = "❌"
	case Critical:
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s] %s*\n\n%s", icon, alert.Level, alert.Title, alert.Message)
	if len(alert.Fields) > 0 {
		b.WriteString("\n")
		for _, k := range sortedKeys(alert.Fields) {
			fmt.Fprintf(&b, "\n- *%s*: %s", k, alert.Fields[k])
		}
	}
	return b.String()
}

func inlineKeyboard(rows [][]Button) [][]inlineButton {
	out := make([][]inlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]inlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, inlineButton{Text: btn.Text, URL: btn.URL, CallbackData: btn.CallbackData})
		}
		out = append(out, r)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "[REDACTED]"), err: err}
}
