// Package bot answers Telegram commands and inline-button callbacks delivered by webhook
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"blendguard/internal/alert"
	"blendguard/internal/core"
	"blendguard/internal/deeplink"
	"blendguard/internal/position"
	"blendguard/internal/protection"
	"blendguard/internal/risk"
	"blendguard/pkg/telemetry"
)

// Dispatcher delivers a reply. *alert.AlertManager satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload alert.AlertPayload)
}

// CallbackAnswerer acknowledges a callback query so the client stops its
// loading spinner. *alert.TelegramChannel satisfies it.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

// VaultInfoProvider describes the deployed SafetyVault
type VaultInfoProvider interface {
	Info() protection.VaultInfo
}

// User is the sender of a message or callback
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies where a reply goes
type Chat struct {
	ID int64 `json:"id"`
}

// Message is the subset of a Telegram message the bot reads
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// CallbackQuery is sent when a user presses an inline button
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data"`
}

// Update is a single webhook delivery
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Bot turns updates into replies
type Bot struct {
	positions position.Source
	signer    *deeplink.Signer
	vault     VaultInfoProvider
	out       Dispatcher
	answerer  CallbackAnswerer
	logger    core.ILogger
}

// New builds a bot. answerer may be nil, in which case callbacks are not acknowledged.
func New(positions position.Source, signer *deeplink.Signer, vault VaultInfoProvider, out Dispatcher, answerer CallbackAnswerer, logger core.ILogger) *Bot {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Bot{
		positions: positions,
		signer:    signer,
		vault:     vault,
		out:       out,
		answerer:  answerer,
		logger:    logger.WithField("component", "telegram_bot"),
	}
}

// HandleUpdate processes one update. Unknown commands and empty updates are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) error {
	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/"):
		return b.handleCommand(ctx, u.Message)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, m *Message) error {
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	userID := chatID
	if m.From != nil {
		userID = strconv.FormatInt(m.From.ID, 10)
	}

	// "/status@BlendGuardBot args" -> "/status"
	cmd := strings.Fields(m.Text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}

	b.logger.Debug("Command received", "command", cmd, "user_id", userID)

	switch cmd {
	case "/start":
		b.reply(ctx, chatID, welcomeText, nil)
	case "/ping":
		b.reply(ctx, chatID, "🏓 pong", nil)
	case "/contract":
		b.reply(ctx, chatID, contractText(b.vault.Info()), nil)
	case "/status":
		text, buttons := alert.StatusReport(position.GetUserPositions(userID))
		b.reply(ctx, chatID, text, buttons)
	case "/demo":
		for _, s := range position.GetUserPositions(userID) {
			if !risk.OffersProtection(s.RiskScore) {
				continue
			}
			payload := alert.LiquidationAlert(userID, s, b.vault.Info().ContractID)
			payload.Recipient = chatID
			b.out.Dispatch(ctx, payload)
		}
	default:
		b.logger.Debug("Ignoring unknown command", "command", cmd)
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, q *CallbackQuery) error {
	userID := strconv.FormatInt(q.From.ID, 10)
	chatID := userID
	if q.Message != nil {
		chatID = strconv.FormatInt(q.Message.Chat.ID, 10)
	}

	if b.answerer != nil && q.ID != "" {
		if err := b.answerer.AnswerCallback(ctx, q.ID); err != nil {
			b.logger.Warn("Failed to answer callback query", "callback_id", q.ID, "error", err)
		}
	}

	action, positionID, ok := strings.Cut(q.Data, "_")
	if !ok || positionID == "" {
		return fmt.Errorf("malformed callback data %q", q.Data)
	}

	switch action {
	case "protect":
		link, err := b.signer.Generate(positionID, userID)
		if err != nil {
			telemetry.GetGlobalMetrics().RecordDeeplinkFailure(ctx)
			b.reply(ctx, chatID, errorText, nil)
			return fmt.Errorf("failed to generate deeplink: %w", err)
		}
		b.logger.Info("Generated secured deeplink", "position_id", positionID, "user_id", userID)
		payload := alert.ProtectLink(userID, positionID, link)
		payload.Recipient = chatID
		b.out.Dispatch(ctx, payload)
	case "details":
		p, err := b.positions.Fetch(ctx, positionID)
		if err != nil {
			b.reply(ctx, chatID, errorText, nil)
			return fmt.Errorf("failed to load position %s: %w", positionID, err)
		}
		details := position.Details{Position: p, LiquidationPrice: position.GetDetails(p.ID).LiquidationPrice}
		b.reply(ctx, chatID, alert.PositionDetails(details, b.vault.Info().Status), [][]alert.Button{{
			{Text: "🛡️ Activate Protection", CallbackData: "protect_" + p.ID},
		}})
	default:
		return fmt.Errorf("unknown callback action %q", action)
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, chatID, text string, buttons [][]alert.Button) {
	b.out.Dispatch(ctx, alert.AlertPayload{
		Level:     alert.Info,
		Title:     "Bot reply",
		Message:   text,
		Recipient: chatID,
		Raw:       true,
		Buttons:   buttons,
	})
}
