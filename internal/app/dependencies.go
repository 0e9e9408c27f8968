package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
	"github.com/vladislavdragonenkov/dop/internal/storage/memory"
	"github.com/vladislavdragonenkov/dop/internal/storage/postgres"
)

// Dependencies содержит инфраструктурные зависимости приложения.
type Dependencies struct {
	Store           domain.Store
	AuditRepo       domain.AuditRepository
	OutboxRepo      domain.OutboxRepository
	IdempotencyRepo domain.IdempotencyRepository
	Logger          *log.Entry

	// pg не nil только при StorageDriverPostgres.
	pg *postgres.Store
}

// NewDependencies инициализирует хранилище согласно конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		return &Dependencies{
			Store:           store,
			AuditRepo:       postgres.NewAuditRepository(store),
			OutboxRepo:      postgres.NewOutboxRepository(store),
			IdempotencyRepo: postgres.NewIdempotencyRepository(store),
			Logger:          logger,
			pg:              store,
		}, nil

	case StorageDriverMemory, "":
		store := memory.NewStore()
		return &Dependencies{
			Store:           store,
			AuditRepo:       memory.NewAuditRepository(),
			OutboxRepo:      memory.NewOutboxRepository(store),
			IdempotencyRepo: memory.NewIdempotencyRepository(),
			Logger:          logger,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d == nil || d.pg == nil {
		return nil
	}
	return d.pg.Close()
}

// PingStorage проверяет доступность хранилища (readiness).
func (d *Dependencies) PingStorage(ctx context.Context) error {
	if d == nil {
		return fmt.Errorf("dependencies are not initialized")
	}
	if d.pg != nil {
		return d.pg.Ping(ctx)
	}
	return nil
}
