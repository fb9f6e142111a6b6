package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	dispatchDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorChat int64 = 4242

type fakeSender struct {
	sent []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	return &models.Message{}, nil
}

type stubAutomations struct{}

func (stubAutomations) GetAutomation(_ context.Context, id string) (*automationDomain.Automation, error) {
	if id != "auto-1" {
		return nil, oops.Wrap(appErrors.ErrAutomationNotFound)
	}
	return &automationDomain.Automation{ID: id, Name: "Price bot", Active: true}, nil
}

func (stubAutomations) Stats(_ context.Context, id string) (*automationDomain.Counters, error) {
	return &automationDomain.Counters{AutomationID: id, DMCount: 7, CommentCount: 3}, nil
}

func newHandler() (*Handler, *fakeSender) {
	h := New(&config.Config{TelegramAlertChatID: operatorChat, AppEnv: "testing"}, stubAutomations{})
	sender := &fakeSender{}
	h.sender = sender
	return h, sender
}

func message(chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID}, Text: text}}
}

func TestAlertSendsToOperatorChat(t *testing.T) {
	h, sender := newHandler()

	h.Alert(context.Background(),
		eventDomain.Event{
			Channel:           eventDomain.ChannelComment,
			PlatformAccountID: "biz-1",
			SenderID:          "fan-1",
			SenderUsername:    "plant_lover",
			CommentID:         "c-1",
			ReceivedAt:        time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		dispatchDomain.Outcome{
			Status:       dispatchDomain.StatusError,
			Reason:       dispatchDomain.ReasonDeliveryFailure,
			Channel:      eventDomain.ChannelComment,
			AutomationID: "auto-1",
			Err:          errors.New("platform rejected delivery"),
		},
	)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, operatorChat, sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "COMMENT reply failed: delivery_failure")
	assert.Contains(t, sender.sent[0].Text, "Comment: c-1")
	assert.Contains(t, sender.sent[0].Text, "Sender: fan-1 (@plant_lover)")
	assert.Contains(t, sender.sent[0].Text, "Received: 2024-03-01T12:30:00Z")
	assert.Contains(t, sender.sent[0].Text, "platform rejected delivery")
}

func TestAlertWithoutChatIsSilent(t *testing.T) {
	h := New(&config.Config{}, stubAutomations{})
	sender := &fakeSender{}
	h.sender = sender

	h.Alert(context.Background(), eventDomain.Event{}, dispatchDomain.Outcome{Status: dispatchDomain.StatusError})
	assert.Empty(t, sender.sent)
}

func TestStats(t *testing.T) {
	h, sender := newHandler()
	ctx := context.Background()

	h.handleStats(ctx, nil, message(operatorChat, "/stats auto-1"))
	h.handleStats(ctx, nil, message(operatorChat, "/stats missing"))
	h.handleStats(ctx, nil, message(operatorChat, "/stats"))

	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[0].Text, "Price bot (active)")
	assert.Contains(t, sender.sent[0].Text, "DM replies: 7")
	assert.Contains(t, sender.sent[0].Text, "Comment replies: 3")
	assert.Contains(t, sender.sent[1].Text, "Automation not found: missing")
	assert.Contains(t, sender.sent[2].Text, "Usage: /stats")
}

func TestCommandsRequireOperatorChat(t *testing.T) {
	h, sender := newHandler()
	ctx := context.Background()

	h.handleStatus(ctx, nil, message(1, "/status"))
	h.handleStats(ctx, nil, message(1, "/stats auto-1"))

	require.Len(t, sender.sent, 2)
	for _, m := range sender.sent {
		assert.Equal(t, "❌ Unauthorized", m.Text)
	}

	h.handleStatus(ctx, nil, message(operatorChat, "/status"))
	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[2].Text, "Environment: testing")
}
