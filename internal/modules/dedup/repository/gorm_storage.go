package repository

import (
	"context"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/dedup/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStorage implements Repository on a relational database
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new gorm-backed ledger
func NewGormStorage(db *gorm.DB) Repository {
	return &GormStorage{db: db}
}

func (s *GormStorage) Exists(ctx context.Context, automationID, commentID string) (bool, error) {
	var count int64
	err := database.Conn(ctx, s.db).
		Model(&domain.ProcessedComment{}).
		Where("automation_id = ? AND comment_id = ?", automationID, commentID).
		Count(&count).Error
	if err != nil {
		return false, oops.With("automation_id", automationID, "comment_id", commentID, "context", "failed to check ledger").Wrap(err)
	}
	return count > 0, nil
}

func (s *GormStorage) Insert(ctx context.Context, automationID, commentID string) (bool, error) {
	res := database.Conn(ctx, s.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ProcessedComment{AutomationID: automationID, CommentID: commentID})
	if res.Error != nil {
		return false, oops.With("automation_id", automationID, "comment_id", commentID, "context", "failed to record comment").Wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}
