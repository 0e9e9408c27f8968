package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// auditRepositoryInMemory хранит записи аудита в памяти (для разработки/тестов).
type auditRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.AuditEvent
}

// NewAuditRepository создаёт in-memory реализацию AuditRepository.
func NewAuditRepository() domain.AuditRepository {
	return &auditRepositoryInMemory{events: make(map[string][]domain.AuditEvent)}
}

// Append добавляет запись аудита.
func (r *auditRepositoryInMemory) Append(_ context.Context, event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.OrderID] = append(r.events[event.OrderID], event)

	sort.Slice(r.events[event.OrderID], func(i, j int) bool {
		return r.events[event.OrderID][i].Occurred.Before(r.events[event.OrderID][j].Occurred)
	})

	return nil
}

// List возвращает записи аудита заказа в хронологическом порядке.
func (r *auditRepositoryInMemory) List(_ context.Context, orderID string) ([]domain.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[orderID]
	result := make([]domain.AuditEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.AuditRepository = (*auditRepositoryInMemory)(nil)
