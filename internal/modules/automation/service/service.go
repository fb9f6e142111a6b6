package service

import (
	"context"
	"strings"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/repository"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/samber/lo"
)

// Service handles automation matching and reply telemetry
type Service struct {
	repo repository.Repository
}

// New creates a new automation service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Match returns the automation triggered by text for the account behind
// platformAccountID, or nil when no keyword occurs in text. Candidates are
// scanned newest first, so the most recently created automation wins a
// shared keyword. A non-empty postID restricts candidates to automations
// scoped to that post or to no post at all.
func (s *Service) Match(ctx context.Context, platformAccountID, text, postID string) (*domain.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	candidates, err := s.repo.FindCandidates(ctx, platformAccountID)
	if err != nil {
		return nil, err
	}

	automation, found := lo.Find(candidates.Automations, func(a domain.Automation) bool {
		return a.AppliesToPost(postID) && a.MatchesText(text)
	})
	if !found {
		return nil, nil
	}

	return &domain.Match{
		Automation: automation,
		Plan:       candidates.Plan,
		Token:      candidates.Token,
	}, nil
}

// RecordReply increments the listener counter of the channel a reply went out on
func (s *Service) RecordReply(ctx context.Context, automationID string, channel eventDomain.Channel) error {
	return s.repo.IncrementCounter(ctx, automationID, channel)
}

// Stats returns the reply counters of an automation
func (s *Service) Stats(ctx context.Context, automationID string) (*domain.Counters, error) {
	return s.repo.GetCounters(ctx, automationID)
}

// GetAutomation retrieves an automation with its keywords, listener and triggers
func (s *Service) GetAutomation(ctx context.Context, automationID string) (*domain.Automation, error) {
	return s.repo.GetAutomation(ctx, automationID)
}

// SaveAccount stores an account and its platform integrations
func (s *Service) SaveAccount(ctx context.Context, account *domain.Account, integrations ...domain.Integration) error {
	return s.repo.SaveAccount(ctx, account, integrations...)
}

// SaveAutomation stores a new automation aggregate
func (s *Service) SaveAutomation(ctx context.Context, automation *domain.Automation) error {
	return s.repo.SaveAutomation(ctx, automation)
}
