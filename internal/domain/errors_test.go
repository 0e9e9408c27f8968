package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

func TestLineError(t *testing.T) {
	err := domain.NewLineError(2, domain.ErrProductNotFound)

	lineErr, ok := domain.AsLineError(err)
	if !ok {
		t.Fatal("expected LineError")
	}
	if lineErr.Index != 2 {
		t.Fatalf("expected index 2, got %d", lineErr.Index)
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatal("LineError should unwrap to the underlying error")
	}
	if lineErr.Error() != "line 2: product not found" {
		t.Fatalf("unexpected message: %s", lineErr.Error())
	}
}

func TestAsLineError_Wrapped(t *testing.T) {
	// LineError извлекается и из обёрнутой цепочки.
	wrapped := fmt.Errorf("create order: %w", domain.NewLineError(0, domain.ErrQuantityInvalid))

	lineErr, ok := domain.AsLineError(wrapped)
	if !ok {
		t.Fatal("expected LineError in wrapped chain")
	}
	if lineErr.Index != 0 {
		t.Fatalf("expected index 0, got %d", lineErr.Index)
	}
}

func TestAsLineError_PlainError(t *testing.T) {
	if _, ok := domain.AsLineError(domain.ErrEmptyOrder); ok {
		t.Fatal("plain error should not be a LineError")
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(fmt.Errorf("save: %w", domain.ErrOrderVersionConflict)) {
		t.Fatal("expected version conflict to be detected through wrapping")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("unrelated error should not be a version conflict")
	}
}
