package di

import (
	"context"
	"testing"

	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	dispatchDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/domain"
	dispatchService "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/service"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	httpServer "github.com/reshetovitsme/insta-autoreply/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", ":memory:")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
}

func TestSetupWiresServer(t *testing.T) {
	setupEnv(t)

	injector, err := Setup()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, Shutdown(injector)) })

	server, err := do.Invoke[*httpServer.Server](injector)
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestDispatcherAgainstMigratedSchema(t *testing.T) {
	setupEnv(t)

	injector, err := Setup()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, Shutdown(injector)) })

	db := do.MustInvoke[*gorm.DB](injector)
	require.NoError(t, database.Migrate(db, Models()...))

	dispatcher := do.MustInvoke[*dispatchService.Service](injector)
	outcome := dispatcher.Dispatch(context.Background(), eventDomain.Event{
		Channel:           eventDomain.ChannelDM,
		PlatformAccountID: "ig_unknown",
		SenderID:          "customer",
		ReceiverID:        "ig_unknown",
		Text:              "price",
	})

	assert.Equal(t, dispatchDomain.StatusIgnored, outcome.Status)
	assert.Equal(t, dispatchDomain.ReasonUnknownAccount, outcome.Reason)
}

func TestModelsCoverAllTables(t *testing.T) {
	models := Models()
	assert.Len(t, models, len(automationDomain.Models())+2)
}
