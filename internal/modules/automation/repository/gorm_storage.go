package repository

import (
	"context"
	"errors"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	appErrors "github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStorage implements Repository on a relational database
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new gorm-backed automation repository
func NewGormStorage(db *gorm.DB) Repository {
	return &GormStorage{db: db}
}

func (s *GormStorage) FindCandidates(ctx context.Context, platformAccountID string) (*domain.Candidates, error) {
	conn := database.Conn(ctx, s.db)

	var integration domain.Integration
	if err := conn.Where("platform_account_id = ?", platformAccountID).First(&integration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oops.With("platform_account_id", platformAccountID).Wrap(appErrors.ErrUnknownAccount)
		}
		return nil, oops.With("platform_account_id", platformAccountID, "context", "failed to load integration").Wrap(err)
	}

	var account domain.Account
	if err := conn.Where("id = ?", integration.AccountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oops.With("account_id", integration.AccountID).Wrap(appErrors.ErrUnknownAccount)
		}
		return nil, oops.With("account_id", integration.AccountID, "context", "failed to load account").Wrap(err)
	}

	var automations []domain.Automation
	err := preload(conn).
		Where("account_id = ? AND active = ?", account.ID, true).
		Order("created_at DESC").
		Find(&automations).Error
	if err != nil {
		return nil, oops.With("account_id", account.ID, "context", "failed to load automations").Wrap(err)
	}

	return &domain.Candidates{
		AccountID:   account.ID,
		Plan:        account.Plan,
		Token:       integration.Token,
		Automations: automations,
	}, nil
}

func (s *GormStorage) IntegrationToken(ctx context.Context, platformAccountID string) (string, error) {
	var integration domain.Integration
	err := database.Conn(ctx, s.db).
		Select("token").
		Where("platform_account_id = ?", platformAccountID).
		First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", oops.With("platform_account_id", platformAccountID).Wrap(appErrors.ErrUnknownAccount)
		}
		return "", oops.With("platform_account_id", platformAccountID, "context", "failed to load integration token").Wrap(err)
	}
	return integration.Token, nil
}

func (s *GormStorage) GetAutomation(ctx context.Context, automationID string) (*domain.Automation, error) {
	var automation domain.Automation
	if err := preload(database.Conn(ctx, s.db)).Where("id = ?", automationID).First(&automation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oops.With("automation_id", automationID).Wrap(appErrors.ErrAutomationNotFound)
		}
		return nil, oops.With("automation_id", automationID, "context", "failed to load automation").Wrap(err)
	}
	return &automation, nil
}

func (s *GormStorage) IncrementCounter(ctx context.Context, automationID string, channel eventDomain.Channel) error {
	column := "dm_count"
	if channel == eventDomain.ChannelComment {
		column = "comment_count"
	}

	res := database.Conn(ctx, s.db).
		Model(&domain.Listener{}).
		Where("automation_id = ?", automationID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return oops.With("automation_id", automationID, "channel", channel, "context", "failed to increment counter").Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.With("automation_id", automationID).Wrap(appErrors.ErrNoListener)
	}
	return nil
}

func (s *GormStorage) GetCounters(ctx context.Context, automationID string) (*domain.Counters, error) {
	var listener domain.Listener
	if err := database.Conn(ctx, s.db).Where("automation_id = ?", automationID).First(&listener).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oops.With("automation_id", automationID).Wrap(appErrors.ErrNoListener)
		}
		return nil, oops.With("automation_id", automationID, "context", "failed to load listener").Wrap(err)
	}

	return &domain.Counters{
		AutomationID: automationID,
		DMCount:      listener.DMCount,
		CommentCount: listener.CommentCount,
	}, nil
}

func (s *GormStorage) SaveAccount(ctx context.Context, account *domain.Account, integrations ...domain.Integration) error {
	return database.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)
		if err := conn.Clauses(clause.OnConflict{UpdateAll: true}).Create(account).Error; err != nil {
			return oops.With("account_id", account.ID, "context", "failed to save account").Wrap(err)
		}

		for i := range integrations {
			integrations[i].AccountID = account.ID
			err := conn.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "platform_account_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"account_id", "token", "expires_at"}),
			}).Create(&integrations[i]).Error
			if err != nil {
				return oops.With("platform_account_id", integrations[i].PlatformAccountID, "context", "failed to save integration").Wrap(err)
			}
		}
		return nil
	})
}

// SaveAutomation creates the automation together with its keywords, listener,
// trigger rules and posts.
func (s *GormStorage) SaveAutomation(ctx context.Context, automation *domain.Automation) error {
	if err := database.Conn(ctx, s.db).Create(automation).Error; err != nil {
		return oops.With("automation_id", automation.ID, "context", "failed to save automation").Wrap(err)
	}
	return nil
}

func (s *GormStorage) PlatformAccountIDs(ctx context.Context, accountID string) ([]string, error) {
	var ids []string
	err := database.Conn(ctx, s.db).
		Model(&domain.Integration{}).
		Where("account_id = ?", accountID).
		Pluck("platform_account_id", &ids).Error
	if err != nil {
		return nil, oops.With("account_id", accountID, "context", "failed to list integrations").Wrap(err)
	}
	return ids, nil
}

func preload(conn *gorm.DB) *gorm.DB {
	return conn.
		Preload("Keywords").
		Preload("Listener").
		Preload("Triggers").
		Preload("Posts")
}
