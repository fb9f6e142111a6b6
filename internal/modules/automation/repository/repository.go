package repository

import (
	"context"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
)

// Repository defines the interface for automation data persistence.
// Automations are authored elsewhere; the reply pipeline only reads them
// and bumps listener counters.
type Repository interface {
	// FindCandidates returns the active automations of the account that owns
	// platformAccountID, newest first.
	FindCandidates(ctx context.Context, platformAccountID string) (*domain.Candidates, error)
	// IntegrationToken returns the current access token of platformAccountID
	IntegrationToken(ctx context.Context, platformAccountID string) (string, error)
	GetAutomation(ctx context.Context, automationID string) (*domain.Automation, error)
	IncrementCounter(ctx context.Context, automationID string, channel eventDomain.Channel) error
	GetCounters(ctx context.Context, automationID string) (*domain.Counters, error)
	SaveAccount(ctx context.Context, account *domain.Account, integrations ...domain.Integration) error
	SaveAutomation(ctx context.Context, automation *domain.Automation) error
	PlatformAccountIDs(ctx context.Context, accountID string) ([]string, error)
}
