package repository

import (
	"context"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

// GormStorage implements Repository on a relational database
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new gorm-backed transcript repository
func NewGormStorage(db *gorm.DB) Repository {
	return &GormStorage{db: db}
}

func (s *GormStorage) Append(ctx context.Context, messages ...*domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	return database.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)
		for _, m := range messages {
			if err := conn.Create(m).Error; err != nil {
				return oops.With("automation_id", m.AutomationID, "sender_id", m.SenderID, "context", "failed to append chat message").Wrap(err)
			}
		}
		return nil
	})
}

func (s *GormStorage) Pair(ctx context.Context, a, b string, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := database.Conn(ctx, s.db).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, oops.With("sender_id", a, "receiver_id", b, "context", "failed to load history").Wrap(err)
	}

	return lo.Reverse(messages), nil
}

func (s *GormStorage) Recent(ctx context.Context, automationID string, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := database.Conn(ctx, s.db).
		Where("automation_id = ?", automationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, oops.With("automation_id", automationID, "context", "failed to load transcript").Wrap(err)
	}
	return messages, nil
}
