package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mumu-bot/teamdraft/go/internal/dbconfig"
	"github.com/mumu-bot/teamdraft/go/internal/draft"
	"github.com/mumu-bot/teamdraft/go/internal/draft/balance"
	"github.com/mumu-bot/teamdraft/go/internal/draft/gateway"
	"github.com/mumu-bot/teamdraft/go/internal/draft/notify"
	"github.com/mumu-bot/teamdraft/go/internal/draft/recorder"
	"github.com/mumu-bot/teamdraft/go/internal/draft/repository"
	"github.com/mumu-bot/teamdraft/go/internal/draft/servant"
)

// Services bundles everything the server hands out to handlers.
type Services struct {
	Draft     *draft.Service
	Hub       *gateway.Hub
	publisher *notify.Publisher
}

func setupServices(ctx context.Context, config *Config) (*Services, func(), error) {
	pool, err := loadServantPool(config)
	if err != nil {
		return nil, nil, err
	}

	hub := gateway.NewHub(gateway.DefaultConfig())

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	presenters := []draft.Presenter{hub}
	var threads draft.ThreadService
	var publisher *notify.Publisher
	if config.NATS.Enabled {
		cfg := notify.DefaultJetStreamConfig()
		cfg.URL = getEnv("NATS_URL", nats.DefaultURL)
		if config.NATS.URL != "" {
			cfg.URL = config.NATS.URL
		}
		publisher, err = notify.NewPublisher(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("setup NATS publisher: %w", err)
		}
		cleanups = append(cleanups, func() { _ = publisher.Close() })
		presenters = append(presenters, publisher)
		threads = publisher
		log.Info().Str("url", cfg.URL).Msg("NATS UI publisher connected")
	}

	var matchRecorder draft.MatchRecorder
	if config.Database.Enabled {
		dbPool, err := dbconfig.NewConfigFromEnv().Connect(ctx)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("setup database: %w", err)
		}
		cleanups = append(cleanups, dbPool.Close)
		matchRecorder = recorder.NewPostgres(dbPool)
		log.Info().Msg("match recorder connected")
	}

	var balancer draft.BalanceCalculator
	if config.Draft.EnableBalance {
		source := balance.StaticRatings{Ratings: config.Balance.Ratings, Default: config.Balance.Default}
		balancer = balance.NewCalculator(source, config.Balance.Algorithm)
	}

	service := draft.NewService(
		repository.NewMemory(),
		draft.NewMultiPresenter(presenters...),
		threads,
		matchRecorder,
		balancer,
		pool,
		clockwork.NewRealClock(),
		config.Draft,
	)

	return &Services{Draft: service, Hub: hub, publisher: publisher}, cleanup, nil
}

func loadServantPool(config *Config) (*servant.Pool, error) {
	if config.Servants.Pool == "" {
		return servant.DefaultPool(), nil
	}
	pool, err := servant.LoadPool(config.Servants.Pool)
	if err != nil {
		return nil, fmt.Errorf("load servant pool: %w", err)
	}
	return pool, nil
}
