package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

func TestAuditRepository_AppendAndList(t *testing.T) {
	repo := NewAuditRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	// Записи добавляются не по порядку, но читаются хронологически.
	events := []domain.AuditEvent{
		{OrderID: "order-1", Type: "status_changed", Actor: "staff-1", Occurred: now.Add(time.Minute)},
		{OrderID: "order-1", Type: "order_created", Actor: "staff-1", Occurred: now},
		{OrderID: "order-2", Type: "order_created", Actor: "staff-2", Occurred: now},
	}
	for _, event := range events {
		if err := repo.Append(ctx, event); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	listed, err := repo.List(ctx, "order-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(listed))
	}
	if listed[0].Type != "order_created" || listed[1].Type != "status_changed" {
		t.Fatalf("expected chronological order, got %s, %s", listed[0].Type, listed[1].Type)
	}

	empty, err := repo.List(ctx, "ghost")
	if err != nil {
		t.Fatalf("list ghost: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events for unknown order, got %d", len(empty))
	}
}
