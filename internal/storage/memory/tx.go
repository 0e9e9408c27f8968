package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// memoryTx — представление транзакции поверх копии состояния.
type memoryTx struct {
	state *state
}

func (t *memoryTx) Catalog() domain.CatalogReader  { return (*catalogReader)(t) }
func (t *memoryTx) Orders() domain.OrderRepository { return (*orderRepository)(t) }
func (t *memoryTx) Finance() domain.FinanceRepository {
	return (*financeRepository)(t)
}
func (t *memoryTx) Outbox() domain.OutboxEnqueuer { return (*outboxEnqueuer)(t) }

type catalogReader memoryTx

func (r *catalogReader) GetCompany(_ context.Context, id string) (domain.Company, error) {
	company, ok := r.state.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	return company, nil
}

func (r *catalogReader) GetProduct(_ context.Context, id string) (domain.Product, error) {
	product, ok := r.state.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *catalogReader) GetVariant(_ context.Context, id string) (domain.ProductVariant, error) {
	variant, ok := r.state.variants[id]
	if !ok {
		return domain.ProductVariant{}, domain.ErrVariantNotFound
	}
	return variant, nil
}

type orderRepository memoryTx

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	if _, exists := r.state.orders[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.state.orders[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	order, ok := r.state.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByCompany возвращает заказы компании, ограничивая выборку limit (если >0).
func (r *orderRepository) ListByCompany(_ context.Context, companyID string, limit int) ([]domain.Order, error) {
	result := make([]domain.Order, 0, len(r.state.orders))
	for _, order := range r.state.orders {
		if order.CompanyID != companyID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает шапку заказа, проверяя версию (optimistic locking).
// Позиции заказа неизменяемы и сохраняются из текущего состояния.
func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	current, ok := r.state.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	order.Lines = current.Lines
	r.state.orders[order.ID] = cloneOrder(order)
	return nil
}

type financeRepository memoryTx

func (r *financeRepository) Create(_ context.Context, entry domain.FinancialEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.state.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *financeRepository) ListByOrder(_ context.Context, orderID string) ([]domain.FinancialEntry, error) {
	result := make([]domain.FinancialEntry, 0)
	for _, entry := range r.state.entries {
		if entry.OrderID == orderID {
			result = append(result, cloneEntry(entry))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// MarkReceivablesPaid переводит pending receivable записи заказа в paid.
// Уже оплаченные записи не трогаются (идемпотентность перехода).
func (r *financeRepository) MarkReceivablesPaid(_ context.Context, orderID string, paidAt time.Time) (int, error) {
	updated := 0
	for id, entry := range r.state.entries {
		if entry.OrderID != orderID {
			continue
		}
		if entry.Kind != domain.FinancialEntryReceivable || entry.Status != domain.FinancialEntryPending {
			continue
		}
		paid := paidAt
		entry.Status = domain.FinancialEntryPaid
		entry.PaidAt = &paid
		entry.UpdatedAt = paidAt
		r.state.entries[id] = entry
		updated++
	}
	return updated, nil
}

type outboxEnqueuer memoryTx

// Enqueue сохраняет событие со статусом `pending` в рамках транзакции.
func (r *outboxEnqueuer) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.state.outbox[msg.ID] = &outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: now,
		updatedAt: now,
	}
	return msg, nil
}
