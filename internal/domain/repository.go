package domain

import (
	"context"
	"time"
)

// CatalogReader описывает чтение состояния каталога. Этот слой только
// читает товары и варианты; их мутация выполняется админским CRUD вне
// данного сервиса.
type CatalogReader interface {
	// GetCompany возвращает компанию или ErrCompanyNotFound.
	GetCompany(ctx context.Context, id string) (Company, error)
	// GetProduct возвращает товар или ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (Product, error)
	// GetVariant возвращает вариант или ErrVariantNotFound.
	GetVariant(ctx context.Context, id string) (ProductVariant, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByCompany возвращает заказы компании с опциональным ограничением на количество.
	ListByCompany(ctx context.Context, companyID string, limit int) ([]Order, error)
	// Save применяет обновления к шапке заказа (статус, заметки)
	// с учётом optimistic locking; позиции неизменяемы.
	Save(ctx context.Context, order Order) error
}

// FinanceRepository описывает требования к хранилищу финансовых записей.
type FinanceRepository interface {
	// Create сохраняет новую финансовую запись.
	Create(ctx context.Context, entry FinancialEntry) error
	// ListByOrder возвращает записи, связанные с заказом.
	ListByOrder(ctx context.Context, orderID string) ([]FinancialEntry, error)
	// MarkReceivablesPaid переводит все pending receivable записи заказа
	// в статус paid с указанной датой. Возвращает число обновлённых записей;
	// повторный вызов для уже оплаченных записей — no-op.
	MarkReceivablesPaid(ctx context.Context, orderID string, paidAt time.Time) (int, error)
}

// OutboxEnqueuer ставит событие в transactional outbox. Внутри Tx запись
// попадает в ту же транзакцию, что и изменения домена.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// Tx объединяет репозитории, работающие в рамках одной транзакции хранилища.
type Tx interface {
	Catalog() CatalogReader
	Orders() OrderRepository
	Finance() FinanceRepository
	Outbox() OutboxEnqueuer
}

// Store открывает транзакции над хранилищем. Все чтения каталога и записи
// заказа/позиций/финансов одной операции выполняются внутри одного WithinTx:
// при ошибке fn транзакция откатывается целиком.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// AuditRepository хранит записи аудита по заказам.
type AuditRepository interface {
	Append(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, orderID string) ([]AuditEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
