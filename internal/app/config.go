// Package app собирает зависимости платформы заказов и управляет её запуском.
package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	// StorageDriverMemory — in-memory хранилище (разработка, тесты).
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — PostgreSQL.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес API заказов.
	HTTPAddr string
	// OpsAddr — адрес служебного сервера (/metrics, /healthz).
	OpsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто = без Kafka.
	KafkaBrokers string

	// AuthTokens — статическая таблица токенов вида
	// "token:user:company:role;token2:...". Пусто = только публичный API.
	AuthTokens string

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		OpsAddr:                     ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           5,
		OutboxRetryDelay:            200 * time.Millisecond,
		ShutdownTimeout:             10 * time.Second,
	}
}

// LoadConfig читает настройки из окружения поверх значений по умолчанию.
// Переменные имеют префикс DOP_.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("DOP_HTTP_ADDR", cfg.HTTPAddr)
	cfg.OpsAddr = envString("DOP_OPS_ADDR", cfg.OpsAddr)
	cfg.PostgresDSN = envString("DOP_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.KafkaBrokers = envString("DOP_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.AuthTokens = envString("DOP_AUTH_TOKENS", cfg.AuthTokens)

	if v := envString("DOP_STORAGE_DRIVER", string(cfg.StorageDriver)); v != "" {
		driver := StorageDriver(strings.ToLower(strings.TrimSpace(v)))
		if driver != StorageDriverMemory && driver != StorageDriverPostgres {
			return Config{}, fmt.Errorf("unsupported storage driver: %s", v)
		}
		cfg.StorageDriver = driver
	}

	var err error
	if cfg.PostgresAutoMigrate, err = envBool("DOP_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = envDuration("DOP_IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupInterval, err = envDuration("DOP_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupBatchSize, err = envInt("DOP_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = envDuration("DOP_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("DOP_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.OutboxMaxAttempts, err = envInt("DOP_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OutboxRetryDelay, err = envDuration("DOP_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("DOP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	if cfg.StorageDriver == StorageDriverPostgres && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("DOP_POSTGRES_DSN is required for postgres storage driver")
	}

	return cfg, nil
}

// ParseAuthTokens разбирает таблицу статических токенов из конфигурации.
// Формат записи: token:user_id:company_id:role, записи разделяются ';'.
// У platform_admin поле company_id может быть пустым.
func ParseAuthTokens(raw string) (map[string]domain.Principal, error) {
	tokens := make(map[string]domain.Principal)
	if strings.TrimSpace(raw) == "" {
		return tokens, nil
	}

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid auth token entry %q: want token:user:company:role", entry)
		}

		role := domain.Role(strings.TrimSpace(parts[3]))
		switch role {
		case domain.RolePlatformAdmin, domain.RoleCompanyAdmin, domain.RoleCompanyStaff:
		default:
			return nil, fmt.Errorf("invalid auth token entry %q: unknown role %q", entry, parts[3])
		}

		token := strings.TrimSpace(parts[0])
		if token == "" {
			return nil, fmt.Errorf("invalid auth token entry %q: empty token", entry)
		}

		tokens[token] = domain.Principal{
			UserID:    strings.TrimSpace(parts[1]),
			CompanyID: strings.TrimSpace(parts[2]),
			Role:      role,
		}
	}

	return tokens, nil
}

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}

func envBool(name string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}
