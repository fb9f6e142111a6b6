package service

import (
	"context"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/dedup/repository"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

// Service guards comment replies against duplicate processing
type Service struct {
	db   *gorm.DB
	repo repository.Repository
}

// New creates a new dedup ledger service
func New(db *gorm.DB, repo repository.Repository) *Service {
	return &Service{
		db:   db,
		repo: repo,
	}
}

// Processed reports whether the comment was already answered by the automation
func (s *Service) Processed(ctx context.Context, automationID, commentID string) (bool, error) {
	return s.repo.Exists(ctx, automationID, commentID)
}

// Guard claims the comment and runs fn while holding the claim. The claim is
// committed only when fn succeeds, so a failed send can be retried later.
// A concurrent or earlier claim makes Guard return ErrDuplicateComment
// without calling fn. fn must reach the database only through ctx.
func (s *Service) Guard(ctx context.Context, automationID, commentID string, fn func(ctx context.Context) error) error {
	return database.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		claimed, err := s.repo.Insert(ctx, automationID, commentID)
		if err != nil {
			return err
		}
		if !claimed {
			return oops.With("automation_id", automationID, "comment_id", commentID).Wrap(appErrors.ErrDuplicateComment)
		}
		return fn(ctx)
	})
}
