package service

import (
	"context"
	"testing"
	"time"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/repository"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database/databasetest"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const platformID = "17841400000000001"

func newService(t *testing.T) *Service {
	t.Helper()
	db := databasetest.New(t, domain.Models()...)
	svc := New(repository.NewGormStorage(db))

	err := svc.SaveAccount(context.Background(),
		&domain.Account{ID: "acc-1", Name: "shop", Plan: domain.PlanPro},
		domain.Integration{ID: "int-1", PlatformAccountID: platformID, Token: "token-1"},
	)
	require.NoError(t, err)
	return svc
}

func automation(name string, created time.Time, words ...string) *domain.Automation {
	a := &domain.Automation{
		AccountID: "acc-1",
		Name:      name,
		Active:    true,
		CreatedAt: created,
		Listener:  &domain.Listener{Kind: domain.ListenerKindScripted, Prompt: "reply from " + name},
		Triggers:  []domain.TriggerRule{{Type: eventDomain.ChannelDM}},
	}
	for _, w := range words {
		a.Keywords = append(a.Keywords, domain.Keyword{Word: w})
	}
	return a
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.SaveAutomation(ctx, automation("greeter", time.Now(), "hello")))

	match, err := svc.Match(ctx, platformID, "HELLO world", "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "greeter", match.Automation.Name)
	assert.Equal(t, domain.PlanPro, match.Plan)
	assert.Equal(t, "token-1", match.Token)
	require.NotNil(t, match.Automation.Listener)
	assert.True(t, match.Automation.HasTrigger(eventDomain.ChannelDM))
	assert.False(t, match.Automation.HasTrigger(eventDomain.ChannelComment))
}

func TestMatchSubstring(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.SaveAutomation(ctx, automation("info", time.Now(), "info")))

	match, err := svc.Match(ctx, platformID, "send me info please", "")
	require.NoError(t, err)
	require.NotNil(t, match)

	match, err = svc.Match(ctx, platformID, "nothing relevant", "")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchPrefersNewestAutomation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	require.NoError(t, svc.SaveAutomation(ctx, automation("older", base, "price")))
	require.NoError(t, svc.SaveAutomation(ctx, automation("newer", base.Add(time.Minute), "price")))

	match, err := svc.Match(ctx, platformID, "what's the price?", "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "newer", match.Automation.Name)
}

func TestMatchSkipsInactive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := automation("paused", time.Now(), "hello")
	a.Active = false
	require.NoError(t, svc.SaveAutomation(ctx, a))

	match, err := svc.Match(ctx, platformID, "hello", "")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchPostScope(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := automation("scoped", time.Now(), "link")
	a.Posts = []domain.Post{{PostID: "post-1"}}
	require.NoError(t, svc.SaveAutomation(ctx, a))

	match, err := svc.Match(ctx, platformID, "link please", "post-1")
	require.NoError(t, err)
	assert.NotNil(t, match)

	match, err = svc.Match(ctx, platformID, "link please", "post-2")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchUnknownAccount(t *testing.T) {
	svc := newService(t)

	_, err := svc.Match(context.Background(), "someone-else", "hello", "")
	assert.ErrorIs(t, err, appErrors.ErrUnknownAccount)
}

func TestMatchEmptyText(t *testing.T) {
	svc := newService(t)

	match, err := svc.Match(context.Background(), platformID, "   ", "")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestRecordReplyIncrementsPerChannel(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := automation("counted", time.Now(), "hi")
	require.NoError(t, svc.SaveAutomation(ctx, a))

	require.NoError(t, svc.RecordReply(ctx, a.ID, eventDomain.ChannelDM))
	require.NoError(t, svc.RecordReply(ctx, a.ID, eventDomain.ChannelDM))
	require.NoError(t, svc.RecordReply(ctx, a.ID, eventDomain.ChannelComment))

	stats, err := svc.Stats(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DMCount)
	assert.Equal(t, int64(1), stats.CommentCount)
}

func TestRecordReplyWithoutListener(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := automation("bare", time.Now(), "hi")
	a.Listener = nil
	require.NoError(t, svc.SaveAutomation(ctx, a))

	err := svc.RecordReply(ctx, a.ID, eventDomain.ChannelDM)
	assert.ErrorIs(t, err, appErrors.ErrNoListener)
}

func TestSaveNormalizesEnums(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a := automation("lowercase", time.Now(), "hey")
	a.Listener.Kind = "generative"
	a.Triggers = []domain.TriggerRule{{Type: "comment"}}
	require.NoError(t, svc.SaveAutomation(ctx, a))

	stored, err := svc.GetAutomation(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Listener)
	assert.Equal(t, domain.ListenerKindGenerative, stored.Listener.Kind)
	assert.True(t, stored.HasTrigger(eventDomain.ChannelComment))

	require.NoError(t, svc.SaveAccount(ctx, &domain.Account{ID: "acc-1", Name: "shop", Plan: "free"}))
	match, err := svc.Match(ctx, platformID, "hey", "")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, domain.PlanFree, match.Plan)
}

func TestSaveRejectsUnknownEnums(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a := automation("smart", time.Now(), "hey")
	a.Listener.Kind = "SMARTAI"
	assert.ErrorIs(t, svc.SaveAutomation(ctx, a), domain.ErrInvalidListenerKind)

	b := automation("push", time.Now(), "hey")
	b.Triggers = []domain.TriggerRule{{Type: "PUSH"}}
	assert.ErrorIs(t, svc.SaveAutomation(ctx, b), eventDomain.ErrInvalidChannel)

	err := svc.SaveAccount(ctx, &domain.Account{ID: "acc-3", Plan: "ENTERPRISE"})
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)
}
