package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	automationRepo "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/repository"
	automationService "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/service"
	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	conversationRepo "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/repository"
	conversationService "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/service"
	dedupDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/dedup/domain"
	dedupRepo "github.com/reshetovitsme/insta-autoreply/internal/modules/dedup/repository"
	dedupService "github.com/reshetovitsme/insta-autoreply/internal/modules/dedup/service"
	deliveryService "github.com/reshetovitsme/insta-autoreply/internal/modules/delivery/service"
	dispatchService "github.com/reshetovitsme/insta-autoreply/internal/modules/dispatch/service"
	feedService "github.com/reshetovitsme/insta-autoreply/internal/modules/feed/service"
	generatorService "github.com/reshetovitsme/insta-autoreply/internal/modules/generator/service"
	responseService "github.com/reshetovitsme/insta-autoreply/internal/modules/response/service"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	httpServer "github.com/reshetovitsme/insta-autoreply/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/insta-autoreply/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in migration order.
func Models() []any {
	return append(automationDomain.Models(), &conversationDomain.ChatMessage{}, &dedupDomain.ProcessedComment{})
}

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	ProvideServices(injector)
	return injector, nil
}

// ProvideServices registers everything that depends on the config
func ProvideServices(injector do.Injector) {
	// Register Database
	do.Provide(injector, func(i do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := database.Open(cfg)
		if err != nil {
			return nil, oops.With("context", "failed to initialize database").Wrap(err)
		}
		return db, nil
	})

	// Register Automation Repository, cached in redis when enabled
	do.Provide(injector, func(i do.Injector) (automationRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := automationRepo.NewGormStorage(do.MustInvoke[*gorm.DB](i))
		if !cfg.CacheEnabled {
			return repo, nil
		}

		client, err := do.Invoke[*redis.Client](i)
		if err != nil {
			return nil, err
		}
		return automationRepo.NewRedisCache(repo, client, cfg.CacheTTL), nil
	})

	// Register Redis Client
	do.Provide(injector, func(i do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, oops.With("context", "invalid redis url").Wrap(err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			slog.Warn("Redis is unreachable, automation lookups will hit the database", "error", err)
		}
		return client, nil
	})

	// Register Conversation Repository
	do.Provide(injector, func(i do.Injector) (conversationRepo.Repository, error) {
		return conversationRepo.NewGormStorage(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Register Dedup Repository
	do.Provide(injector, func(i do.Injector) (dedupRepo.Repository, error) {
		return dedupRepo.NewGormStorage(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Register Automation Service
	do.Provide(injector, func(i do.Injector) (*automationService.Service, error) {
		return automationService.New(do.MustInvoke[automationRepo.Repository](i)), nil
	})

	// Register Conversation Service
	do.Provide(injector, func(i do.Injector) (*conversationService.Service, error) {
		return conversationService.New(do.MustInvoke[conversationRepo.Repository](i)), nil
	})

	// Register Dedup Service
	do.Provide(injector, func(i do.Injector) (*dedupService.Service, error) {
		db := do.MustInvoke[*gorm.DB](i)
		return dedupService.New(db, do.MustInvoke[dedupRepo.Repository](i)), nil
	})

	// Register Generator
	do.Provide(injector, func(i do.Injector) (generatorService.Generator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return generatorService.NewGemini(context.Background(), cfg)
	})

	// Register Delivery Service
	do.Provide(injector, func(i do.Injector) (*deliveryService.Service, error) {
		return deliveryService.New(do.MustInvoke[*config.Config](i)), nil
	})

	// Register Response Selector
	do.Provide(injector, func(i do.Injector) (*responseService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conversations := do.MustInvoke[*conversationService.Service](i)
		generator := do.MustInvoke[generatorService.Generator](i)
		return responseService.New(cfg, conversations, generator), nil
	})

	// Register Dispatcher
	do.Provide(injector, func(i do.Injector) (*dispatchService.Service, error) {
		return dispatchService.New(
			do.MustInvoke[*automationService.Service](i),
			do.MustInvoke[*responseService.Service](i),
			do.MustInvoke[*conversationService.Service](i),
			do.MustInvoke[*dedupService.Service](i),
			do.MustInvoke[*deliveryService.Service](i),
		), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		automations := do.MustInvoke[*automationService.Service](i)
		conversations := do.MustInvoke[*conversationService.Service](i)
		return feedService.New(automations, conversations), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegramHandler.New(cfg, do.MustInvoke[*automationService.Service](i)), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dispatcher := do.MustInvoke[*dispatchService.Service](i)
		feeds := do.MustInvoke[*feedService.Service](i)
		server := httpServer.New(cfg, dispatcher, feeds)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot; only invoked when a token is configured
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		handler.RegisterCommands(b)
		handler.SetBot(b)

		// Failed events are forwarded to the operator chat
		do.MustInvoke[*dispatchService.Service](i).SetAlerter(handler)

		return b, nil
	})
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil
	}

	// The bot and redis client are only built when configured
	if cfg.TelegramBotToken != "" {
		if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
			b.Close(ctx)
		}
	}

	if cfg.CacheEnabled {
		if client, err := do.Invoke[*redis.Client](injector); err == nil && client != nil {
			if err := client.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}
	}

	if db, err := do.Invoke[*gorm.DB](injector); err == nil && db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return oops.With("context", "failed to get underlying sql.DB").Wrap(err)
		}
		if err := sqlDB.Close(); err != nil {
			return oops.With("context", "failed to close database").Wrap(err)
		}
	}

	return nil
}
