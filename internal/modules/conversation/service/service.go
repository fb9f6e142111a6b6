package service

import (
	"context"
	"time"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/repository"
)

// Service handles conversation transcript business logic
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

// New creates a new conversation service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// AppendExchange records the inbound message and its reply atomically.
// Both rows share a timestamp; insertion order keeps the reply after the message.
func (s *Service) AppendExchange(ctx context.Context, exchange domain.Exchange) error {
	inbound, outbound := exchange.Messages(s.now().UTC())
	return s.repo.Append(ctx, inbound, outbound)
}

// AppendReply records only the outbound row of exchange, for replies that
// answer a message already in the transcript.
func (s *Service) AppendReply(ctx context.Context, exchange domain.Exchange) error {
	_, outbound := exchange.Messages(s.now().UTC())
	return s.repo.Append(ctx, outbound)
}

// History returns the latest limit messages between a customer and a business
// account in both directions, oldest first.
func (s *Service) History(ctx context.Context, customerID, businessID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.repo.Pair(ctx, customerID, businessID, limit)
}

// Recent returns the newest transcript rows of an automation
func (s *Service) Recent(ctx context.Context, automationID string, limit int) ([]domain.ChatMessage, error) {
	return s.repo.Recent(ctx, automationID, limit)
}
