package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	generatorDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/generator/domain"
	generatorService "github.com/reshetovitsme/insta-autoreply/internal/modules/generator/service"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/response/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/metrics"
	"github.com/samber/oops"
)

// HistoryReader loads the transcript of a customer/business pair
type HistoryReader interface {
	History(ctx context.Context, customerID, businessID string, limit int) ([]conversationDomain.ChatMessage, error)
}

// Service selects and produces the reply for a matched automation
type Service struct {
	history       HistoryReader
	generator     generatorService.Generator
	historyLimit  int
	maxSentences  int
	fallbackReply string
}

// New creates a new response selector
func New(cfg *config.Config, history HistoryReader, generator generatorService.Generator) *Service {
	fallback := cfg.FallbackReply
	if fallback == "" {
		fallback = config.DefaultFallbackReply
	}
	return &Service{
		history:       history,
		generator:     generator,
		historyLimit:  cfg.HistoryLimit,
		maxSentences:  cfg.ReplyMaxSentences,
		fallbackReply: fallback,
	}
}

// Resolve returns the reply for in. It fails with ErrNoListener when the
// automation has no listener or one of an unknown kind,
// ErrGenerativeNotEntitled for generative listeners outside the PRO plan and
// ErrEmptyReply when a scripted reply is blank.
// Generator failures never surface; they resolve to the fallback apology.
// A history read failure is returned as is.
func (s *Service) Resolve(ctx context.Context, in domain.Input) (*domain.Resolution, error) {
	automation := in.Match.Automation
	listener := automation.Listener
	if listener == nil {
		return nil, oops.With("automation_id", automation.ID).Wrap(appErrors.ErrNoListener)
	}

	// kinds written outside the store hooks may differ in case or be unknown
	kind, err := automationDomain.ParseListenerKind(listener.Kind.String())
	if err != nil {
		return nil, oops.With("automation_id", automation.ID, "kind", listener.Kind).Wrap(fmt.Errorf("%w: %w", appErrors.ErrNoListener, err))
	}

	if kind == automationDomain.ListenerKindGenerative {
		plan, err := automationDomain.ParsePlan(in.Match.Plan.String())
		if err != nil || plan != automationDomain.PlanPro {
			return nil, oops.With("automation_id", automation.ID, "plan", in.Match.Plan).Wrap(appErrors.ErrGenerativeNotEntitled)
		}
		return s.generate(ctx, automation.ID, listener, in)
	}

	text := scriptedText(listener, in.Channel)
	if strings.TrimSpace(text) == "" {
		return nil, oops.With("automation_id", automation.ID, "channel", in.Channel).Wrap(appErrors.ErrEmptyReply)
	}
	return &domain.Resolution{Text: text, Strategy: domain.StrategyScripted}, nil
}

func scriptedText(listener *automationDomain.Listener, channel eventDomain.Channel) string {
	if channel == eventDomain.ChannelComment && listener.FallbackReply != "" {
		return listener.FallbackReply
	}
	return listener.Prompt
}

func (s *Service) generate(ctx context.Context, automationID string, listener *automationDomain.Listener, in domain.Input) (*domain.Resolution, error) {
	history, err := s.history.History(ctx, in.CustomerID, in.BusinessID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	text, err := s.generator.Generate(ctx, generatorDomain.Request{
		Instruction: generatorService.ComposeInstruction(listener.Prompt, in.Channel, s.maxSentences),
		History:     generatorService.BuildTurns(history, in.CustomerID),
		Message:     in.Text,
	})
	if err != nil {
		kind := generatorDomain.KindOf(err)
		metrics.GenerationFailuresTotal.WithLabelValues(string(kind)).Inc()

		attrs := []any{"automation_id", automationID, "channel", in.Channel, "kind", kind, "error", err}
		if kind == generatorDomain.KindMalformedResponse {
			slog.Error("Generator returned an unusable completion, sending fallback", attrs...)
		} else {
			slog.Warn("Generator unavailable, sending fallback", attrs...)
		}

		return &domain.Resolution{Text: s.fallbackReply, Strategy: domain.StrategyFallback, Fallback: true}, nil
	}

	return &domain.Resolution{Text: text, Strategy: domain.StrategyGenerative}, nil
}
