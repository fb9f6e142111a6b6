package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	dispatchDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
)

type automationReader interface {
	GetAutomation(ctx context.Context, automationID string) (*automationDomain.Automation, error)
	Stats(ctx context.Context, automationID string) (*automationDomain.Counters, error)
}

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Handler is the operator bot: it forwards failed events to the alert chat
// and answers status queries from that chat
type Handler struct {
	cfg         *config.Config
	automations automationReader
	sender      messageSender
	startedAt   time.Time
}

// New creates a new Telegram handler
func New(cfg *config.Config, automations automationReader) *Handler {
	return &Handler{
		cfg:         cfg,
		automations: automations,
		startedAt:   time.Now(),
	}
}

// SetBot sets the Telegram bot instance
func (h *Handler) SetBot(b *bot.Bot) {
	h.sender = b
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)
}

// HandleUpdate drops updates no command matched
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil {
		slog.Debug("Ignoring telegram message", "chat_id", update.Message.Chat.ID)
	}
}

// Alert reports an event that ended in ERROR to the operator chat
func (h *Handler) Alert(ctx context.Context, ev eventDomain.Event, outcome dispatchDomain.Outcome) {
	if h.sender == nil || h.cfg.TelegramAlertChatID == 0 {
		return
	}

	if _, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: h.cfg.TelegramAlertChatID,
		Text:   formatAlert(ev, outcome),
	}); err != nil {
		slog.Error("Failed to send telegram alert", "error", err, "automation_id", outcome.AutomationID)
	}
}

func formatAlert(ev eventDomain.Event, outcome dispatchDomain.Outcome) string {
	var text strings.Builder
	fmt.Fprintf(&text, "🚨 %s reply failed: %s\n\n", outcome.Channel, outcome.Reason)
	fmt.Fprintf(&text, "Account: %s\n", ev.PlatformAccountID)
	if ev.SenderUsername != "" {
		fmt.Fprintf(&text, "Sender: %s (@%s)\n", ev.SenderID, ev.SenderUsername)
	} else {
		fmt.Fprintf(&text, "Sender: %s\n", ev.SenderID)
	}
	if outcome.AutomationID != "" {
		fmt.Fprintf(&text, "Automation: %s\n", outcome.AutomationID)
	}
	if ev.CommentID != "" {
		fmt.Fprintf(&text, "Comment: %s\n", ev.CommentID)
	}
	if !ev.ReceivedAt.IsZero() {
		fmt.Fprintf(&text, "Received: %s\n", ev.ReceivedAt.UTC().Format(time.RFC3339))
	}
	if outcome.Err != nil {
		fmt.Fprintf(&text, "Error: %v\n", outcome.Err)
	}
	return strings.TrimRight(text.String(), "\n")
}

func (h *Handler) authorized(chatID int64) bool {
	return h.cfg.TelegramAlertChatID != 0 && chatID == h.cfg.TelegramAlertChatID
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if h.sender == nil {
		return
	}
	if _, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		slog.Error("Failed to send telegram message", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	text := `👋 Instagram auto-reply operator bot

Failed replies are reported in this chat.

Available commands:
/status - Show service status
/stats <automation_id> - Show reply counters of an automation`

	h.reply(ctx, update.Message.Chat.ID, text)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, chatID, "❌ Unauthorized")
		return
	}

	text := fmt.Sprintf(`📊 Service Status:

Environment: %s
Uptime: %s
HTTP Port: %s
Database: %s
Generative model: %s`,
		h.cfg.AppEnv,
		time.Since(h.startedAt).Round(time.Second),
		h.cfg.HTTPPort,
		h.cfg.DatabaseDriver,
		h.cfg.GeminiModel)

	h.reply(ctx, chatID, text)
}

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, chatID, "❌ Unauthorized")
		return
	}

	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.reply(ctx, chatID, "Usage: /stats <automation_id>")
		return
	}
	automationID := args[1]

	automation, err := h.automations.GetAutomation(ctx, automationID)
	if err != nil {
		if errors.Is(err, appErrors.ErrAutomationNotFound) {
			h.reply(ctx, chatID, fmt.Sprintf("❌ Automation not found: %s", automationID))
			return
		}
		h.reply(ctx, chatID, fmt.Sprintf("❌ Failed to load automation: %v", err))
		return
	}

	counters, err := h.automations.Stats(ctx, automationID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNoListener) {
			h.reply(ctx, chatID, fmt.Sprintf("📭 %s has no listener yet.", automation.Name))
			return
		}
		h.reply(ctx, chatID, fmt.Sprintf("❌ Failed to load counters: %v", err))
		return
	}

	status := "active"
	if !automation.Active {
		status = "paused"
	}

	h.reply(ctx, chatID, fmt.Sprintf(`📈 %s (%s)

DM replies: %d
Comment replies: %d`, automation.Name, status, counters.DMCount, counters.CommentCount))
}
