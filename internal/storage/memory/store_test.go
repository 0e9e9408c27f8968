package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

func seededStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore()
	now := time.Now().UTC()
	store.SeedCompany(domain.Company{ID: "company-1", Name: "Acme", Active: true, CreatedAt: now})
	store.SeedProduct(domain.Product{ID: "product-1", CompanyID: "company-1", Name: "Water", BasePriceMinor: 1000, Active: true})
	store.SeedVariant(domain.ProductVariant{ID: "variant-1", ProductID: "product-1", Name: "Sparkling", PriceModifierMinor: 250, Active: true})
	return store
}

func makeOrder(id, companyID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:           id,
		CompanyID:    companyID,
		CustomerName: "Maria Santos",
		Status:       domain.OrderStatusReceived,
		Lines: []domain.OrderLine{
			{ID: id + "-line", ProductID: "product-1", Qty: 1, UnitPriceMinor: 1000, TotalMinor: 1000},
		},
		SubtotalMinor: 1000,
		TotalMinor:    1000,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := tx.Orders().Create(ctx, makeOrder("order-1", "company-1", time.Now().UTC())); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	// Ошибка fn откатывает все изменения транзакции.
	err = store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Orders().Get(ctx, "order-1")
		return err
	})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after rollback, got %v", err)
	}
}

func TestWithinTx_CommitPersists(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Orders().Create(ctx, makeOrder("order-1", "company-1", time.Now().UTC()))
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	var loaded domain.Order
	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, "order-1")
		loaded = order
		return err
	}); err != nil {
		t.Fatalf("get order: %v", err)
	}
	if loaded.CustomerName != "Maria Santos" {
		t.Fatalf("unexpected order: %+v", loaded)
	}
}

func TestWithinTx_ContextCancelled(t *testing.T) {
	store := seededStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCatalogReader(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		catalog := tx.Catalog()

		company, err := catalog.GetCompany(ctx, "company-1")
		if err != nil {
			return err
		}
		if company.Name != "Acme" {
			t.Fatalf("unexpected company: %+v", company)
		}

		if _, err := catalog.GetCompany(ctx, "ghost"); !errors.Is(err, domain.ErrCompanyNotFound) {
			t.Fatalf("expected ErrCompanyNotFound, got %v", err)
		}
		if _, err := catalog.GetProduct(ctx, "ghost"); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
		if _, err := catalog.GetVariant(ctx, "ghost"); !errors.Is(err, domain.ErrVariantNotFound) {
			t.Fatalf("expected ErrVariantNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("within tx: %v", err)
	}
}

func TestOrderRepository_SaveVersioning(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	order := makeOrder("order-1", "company-1", time.Now().UTC())
	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Orders().Create(ctx, order)
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Сохранение с актуальной версией увеличивает её на единицу.
	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order.Status = domain.OrderStatusInPicking
		return tx.Orders().Save(ctx, order)
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		saved, err := tx.Orders().Get(ctx, "order-1")
		if err != nil {
			return err
		}
		if saved.Version != 1 {
			t.Fatalf("expected version 1, got %d", saved.Version)
		}
		if saved.Status != domain.OrderStatusInPicking {
			t.Fatalf("unexpected status: %s", saved.Status)
		}
		if len(saved.Lines) != 1 {
			t.Fatalf("lines must survive save, got %d", len(saved.Lines))
		}
		return nil
	}); err != nil {
		t.Fatalf("get: %v", err)
	}

	// Сохранение с устаревшей версией отклоняется.
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		stale := order
		stale.Version = 0
		return tx.Orders().Save(ctx, stale)
	})
	if !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict, got %v", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Orders().Save(ctx, makeOrder("ghost", "company-1", time.Now().UTC()))
	})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	order := makeOrder("order-1", "company-1", time.Now().UTC())
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Orders().Create(ctx, order)
	})
	if !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict for duplicate, got %v", err)
	}
}

func TestOrderRepository_ListByCompany(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		for i, id := range []string{"order-1", "order-2", "order-3"} {
			if err := tx.Orders().Create(ctx, makeOrder(id, "company-1", base.Add(time.Duration(i)*time.Minute))); err != nil {
				return err
			}
		}
		return tx.Orders().Create(ctx, makeOrder("foreign", "company-2", base))
	}); err != nil {
		t.Fatalf("seed orders: %v", err)
	}

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		orders, err := tx.Orders().ListByCompany(ctx, "company-1", 2)
		if err != nil {
			return err
		}
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
		// Свежие заказы идут первыми.
		if orders[0].ID != "order-3" || orders[1].ID != "order-2" {
			t.Fatalf("unexpected order: %s, %s", orders[0].ID, orders[1].ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestFinanceRepository_MarkReceivablesPaid(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Finance().Create(ctx, domain.FinancialEntry{
			ID:          "entry-1",
			CompanyID:   "company-1",
			OrderID:     "order-1",
			Kind:        domain.FinancialEntryReceivable,
			AmountMinor: 1000,
			Status:      domain.FinancialEntryPending,
		})
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	paidAt := time.Now().UTC()
	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		n, err := tx.Finance().MarkReceivablesPaid(ctx, "order-1", paidAt)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Fatalf("expected 1 updated entry, got %d", n)
		}

		// Повторный вызов — no-op.
		n, err = tx.Finance().MarkReceivablesPaid(ctx, "order-1", paidAt)
		if err != nil {
			return err
		}
		if n != 0 {
			t.Fatalf("expected repeated call to be no-op, got %d", n)
		}

		entries, err := tx.Finance().ListByOrder(ctx, "order-1")
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Status != domain.FinancialEntryPaid || entries[0].PaidAt == nil {
			t.Fatalf("expected paid entry with PaidAt, got %+v", entries[0])
		}
		return nil
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
}

func TestOutboxEnqueue_VisibleAfterCommit(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   "order-1",
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		})
		return err
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msgs, err := NewOutboxRepository(store).PullPending(ctx, 0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(msgs))
	}
	if msgs[0].EventType != "order.created" {
		t.Fatalf("unexpected message: %+v", msgs[0])
	}
}
