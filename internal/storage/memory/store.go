package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// state — полное состояние in-memory хранилища. Транзакция работает
// с глубокой копией и подменяет состояние только при успешном коммите.
type state struct {
	companies map[string]domain.Company
	products  map[string]domain.Product
	variants  map[string]domain.ProductVariant
	orders    map[string]domain.Order
	entries   map[string]domain.FinancialEntry
	outbox    map[string]*outboxRecord
}

func newState() *state {
	return &state{
		companies: make(map[string]domain.Company),
		products:  make(map[string]domain.Product),
		variants:  make(map[string]domain.ProductVariant),
		orders:    make(map[string]domain.Order),
		entries:   make(map[string]domain.FinancialEntry),
		outbox:    make(map[string]*outboxRecord),
	}
}

func (s *state) clone() *state {
	dst := newState()
	for k, v := range s.companies {
		dst.companies[k] = v
	}
	for k, v := range s.products {
		dst.products[k] = v
	}
	for k, v := range s.variants {
		dst.variants[k] = v
	}
	for k, v := range s.orders {
		dst.orders[k] = cloneOrder(v)
	}
	for k, v := range s.entries {
		dst.entries[k] = cloneEntry(v)
	}
	for k, v := range s.outbox {
		rec := *v
		dst.outbox[k] = &rec
	}
	return dst
}

func cloneOrder(order domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}

func cloneEntry(entry domain.FinancialEntry) domain.FinancialEntry {
	if entry.PaidAt != nil {
		paidAt := *entry.PaidAt
		entry.PaidAt = &paidAt
	}
	return entry
}

// Store — in-memory реализация domain.Store для локальной разработки и тестов.
// Атомарность WithinTx обеспечивается мьютексом и копированием состояния:
// fn мутирует копию, при ошибке копия отбрасывается целиком.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx выполняет fn в рамках одной атомарной операции над состоянием.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	tx := &memoryTx{state: draft}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.state = draft
	return nil
}

// SeedCompany добавляет компанию в каталог (для тестов и локального запуска).
func (s *Store) SeedCompany(company domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.companies[company.ID] = company
}

// SeedProduct добавляет товар в каталог.
func (s *Store) SeedProduct(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[product.ID] = product
}

// SeedVariant добавляет вариант товара в каталог.
func (s *Store) SeedVariant(variant domain.ProductVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.variants[variant.ID] = variant
}

var _ domain.Store = (*Store)(nil)
