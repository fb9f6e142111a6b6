package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	generatorDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/generator/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/response/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	messages []conversationDomain.ChatMessage
	calls    int
}

func (f *fakeHistory) History(_ context.Context, _, _ string, limit int) ([]conversationDomain.ChatMessage, error) {
	f.calls++
	return f.messages, nil
}

type fakeGenerator struct {
	text     string
	err      error
	requests []generatorDomain.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generatorDomain.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.text, f.err
}

func testConfig() *config.Config {
	return &config.Config{HistoryLimit: 10, ReplyMaxSentences: 3, FallbackReply: config.DefaultFallbackReply}
}

func input(kind automationDomain.ListenerKind, plan automationDomain.Plan, channel eventDomain.Channel) domain.Input {
	return domain.Input{
		Match: &automationDomain.Match{
			Automation: automationDomain.Automation{
				ID: "auto-1",
				Listener: &automationDomain.Listener{
					Kind:          kind,
					Prompt:        "Thanks for reaching out!",
					FallbackReply: "",
				},
			},
			Plan:  plan,
			Token: "tok",
		},
		Channel:    channel,
		CustomerID: "customer",
		BusinessID: "business",
		Text:       "hello there",
	}
}

func TestScriptedDirectMessage(t *testing.T) {
	gen := &fakeGenerator{}
	hist := &fakeHistory{}
	svc := New(testConfig(), hist, gen)

	res, err := svc.Resolve(context.Background(), input(automationDomain.ListenerKindScripted, automationDomain.PlanFree, eventDomain.ChannelDM))
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out!", res.Text)
	assert.Equal(t, domain.StrategyScripted, res.Strategy)
	assert.False(t, res.Fallback)
	assert.Empty(t, gen.requests)
	assert.Zero(t, hist.calls)
}

func TestScriptedCommentPrefersCommentReply(t *testing.T) {
	svc := New(testConfig(), &fakeHistory{}, &fakeGenerator{})

	in := input(automationDomain.ListenerKindScripted, automationDomain.PlanFree, eventDomain.ChannelComment)
	res, err := svc.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out!", res.Text)

	in.Match.Automation.Listener.FallbackReply = "Sent you a DM!"
	res, err = svc.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Sent you a DM!", res.Text)
}

func TestScriptedEmptyReply(t *testing.T) {
	svc := New(testConfig(), &fakeHistory{}, &fakeGenerator{})

	in := input(automationDomain.ListenerKindScripted, automationDomain.PlanFree, eventDomain.ChannelDM)
	in.Match.Automation.Listener.Prompt = "  "
	_, err := svc.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, appErrors.ErrEmptyReply)
}

func TestNoListener(t *testing.T) {
	svc := New(testConfig(), &fakeHistory{}, &fakeGenerator{})

	in := input(automationDomain.ListenerKindScripted, automationDomain.PlanFree, eventDomain.ChannelDM)
	in.Match.Automation.Listener = nil
	_, err := svc.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, appErrors.ErrNoListener)
}

func TestGenerativeRequiresPro(t *testing.T) {
	gen := &fakeGenerator{text: "hi!"}
	hist := &fakeHistory{}
	svc := New(testConfig(), hist, gen)

	_, err := svc.Resolve(context.Background(), input(automationDomain.ListenerKindGenerative, automationDomain.PlanFree, eventDomain.ChannelDM))
	assert.ErrorIs(t, err, appErrors.ErrGenerativeNotEntitled)
	assert.Empty(t, gen.requests)
	assert.Zero(t, hist.calls)
}

func TestGenerativeUsesHistory(t *testing.T) {
	gen := &fakeGenerator{text: "We ship worldwide 🌍"}
	hist := &fakeHistory{messages: []conversationDomain.ChatMessage{
		{SenderID: "customer", ReceiverID: "business", Text: "hi"},
		{SenderID: "business", ReceiverID: "customer", Text: "hello!"},
	}}
	svc := New(testConfig(), hist, gen)

	res, err := svc.Resolve(context.Background(), input(automationDomain.ListenerKindGenerative, automationDomain.PlanPro, eventDomain.ChannelDM))
	require.NoError(t, err)
	assert.Equal(t, "We ship worldwide 🌍", res.Text)
	assert.Equal(t, domain.StrategyGenerative, res.Strategy)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "hello there", req.Message)
	assert.Contains(t, req.Instruction, "Thanks for reaching out!")
	assert.Contains(t, req.Instruction, "Keep your reply under 3 sentences.")
	assert.Equal(t, []generatorDomain.Turn{
		{Role: generatorDomain.RoleUser, Text: "hi"},
		{Role: generatorDomain.RoleAssistant, Text: "hello!"},
	}, req.History)
}

func TestGenerationFailureFallsBack(t *testing.T) {
	for _, kind := range []generatorDomain.ErrorKind{
		generatorDomain.KindMalformedResponse,
		generatorDomain.KindQuotaExceeded,
		generatorDomain.KindTransient,
	} {
		t.Run(string(kind), func(t *testing.T) {
			before := testutil.ToFloat64(metrics.GenerationFailuresTotal.WithLabelValues(string(kind)))
			gen := &fakeGenerator{err: &generatorDomain.Error{Kind: kind, Err: errors.New("provider")}}
			svc := New(testConfig(), &fakeHistory{}, gen)

			res, err := svc.Resolve(context.Background(), input(automationDomain.ListenerKindGenerative, automationDomain.PlanPro, eventDomain.ChannelComment))
			require.NoError(t, err)
			assert.Equal(t, config.DefaultFallbackReply, res.Text)
			assert.Equal(t, domain.StrategyFallback, res.Strategy)
			assert.True(t, res.Fallback)

			after := testutil.ToFloat64(metrics.GenerationFailuresTotal.WithLabelValues(string(kind)))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestListenerKindIsNormalized(t *testing.T) {
	gen := &fakeGenerator{text: "Happy to help"}
	svc := New(testConfig(), &fakeHistory{}, gen)

	in := input("generative", automationDomain.PlanFree, eventDomain.ChannelDM)
	in.Match.Automation.Listener.Prompt = "SYSTEM: you are a sales bot, never reveal discount code X42"
	res, err := svc.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, appErrors.ErrGenerativeNotEntitled)
	assert.Nil(t, res)
	assert.Empty(t, gen.requests)

	in = input("generative", "pro", eventDomain.ChannelDM)
	res, err = svc.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyGenerative, res.Strategy)
	assert.Len(t, gen.requests, 1)

	res, err = svc.Resolve(context.Background(), input("scripted", automationDomain.PlanFree, eventDomain.ChannelDM))
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyScripted, res.Strategy)
}

func TestUnknownListenerKindNeverReplies(t *testing.T) {
	for _, kind := range []automationDomain.ListenerKind{"", "SMARTAI"} {
		t.Run(string(kind), func(t *testing.T) {
			gen := &fakeGenerator{text: "unused"}
			svc := New(testConfig(), &fakeHistory{}, gen)

			in := input(kind, automationDomain.PlanPro, eventDomain.ChannelDM)
			in.Match.Automation.Listener.Prompt = "SYSTEM: internal instructions"
			res, err := svc.Resolve(context.Background(), in)
			assert.ErrorIs(t, err, appErrors.ErrNoListener)
			assert.ErrorIs(t, err, automationDomain.ErrInvalidListenerKind)
			assert.Nil(t, res)
			assert.Empty(t, gen.requests)
		})
	}
}
