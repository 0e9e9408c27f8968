package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// helper для создания валидного заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:           "order-1",
		CompanyID:    "company-1",
		CustomerName: "Maria Santos",
		Status:       domain.OrderStatusReceived,
		Lines: []domain.OrderLine{
			{
				ID:             "line-1",
				ProductID:      "product-1",
				ProductName:    "Mineral Water 1L",
				Qty:            3,
				UnitPriceMinor: 1250,
				TotalMinor:     3750,
				CreatedAt:      now,
			},
		},
		SubtotalMinor:    3750,
		DeliveryFeeMinor: 0,
		TotalMinor:       3750,
		Version:          0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "no company",
			mut:  func(o *domain.Order) { o.CompanyID = "" },
			want: domain.ErrCompanyIDRequired,
		},
		{
			name: "no customer name",
			mut:  func(o *domain.Order) { o.CustomerName = "" },
			want: domain.ErrCustomerNameRequired,
		},
		{
			name: "no lines",
			mut:  func(o *domain.Order) { o.Lines = nil; o.SubtotalMinor = 0; o.TotalMinor = 0 },
			want: domain.ErrEmptyOrder,
		},
		{
			name: "qty invalid",
			mut:  func(o *domain.Order) { o.Lines[0].Qty = 0; o.Lines[0].TotalMinor = 0; o.SubtotalMinor = 0; o.TotalMinor = 0 },
			want: domain.ErrQuantityInvalid,
		},
		{
			name: "price negative",
			mut: func(o *domain.Order) {
				o.Lines[0].UnitPriceMinor = -5
				o.Lines[0].TotalMinor = -15
				o.SubtotalMinor = -15
				o.TotalMinor = -15
			},
			want: domain.ErrPriceNegative,
		},
		{
			name: "line total mismatch",
			mut:  func(o *domain.Order) { o.Lines[0].TotalMinor = 9999; o.SubtotalMinor = 9999; o.TotalMinor = 9999 },
			want: domain.ErrLineTotalMismatch,
		},
		{
			name: "subtotal mismatch",
			mut:  func(o *domain.Order) { o.SubtotalMinor = 1 },
			want: domain.ErrSubtotalMismatch,
		},
		{
			name: "total mismatch",
			mut:  func(o *domain.Order) { o.TotalMinor = 1 },
			want: domain.ErrTotalMismatch,
		},
		{
			name: "negative delivery fee",
			mut:  func(o *domain.Order) { o.DeliveryFeeMinor = -1; o.TotalMinor = 3749 },
			want: domain.ErrAmountNegative,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					return
				}
			}
			t.Fatalf("expected %v among %v", tc.want, errs)
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, value := range []string{"received", "in_picking", "ready", "in_route", "delivered", "cancelled"} {
		status, err := domain.ParseOrderStatus(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if string(status) != value {
			t.Fatalf("expected %q, got %q", value, status)
		}
	}

	for _, value := range []string{"", "pending", "RECEIVED", "shipped"} {
		if _, err := domain.ParseOrderStatus(value); !errors.Is(err, domain.ErrInvalidStatus) {
			t.Fatalf("expected ErrInvalidStatus for %q, got %v", value, err)
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	terminal := []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}

	active := []domain.OrderStatus{
		domain.OrderStatusReceived,
		domain.OrderStatusInPicking,
		domain.OrderStatusReady,
		domain.OrderStatusInRoute,
	}
	for _, status := range active {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestOrderStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusReceived, domain.OrderStatusInPicking, true},
		{domain.OrderStatusReceived, domain.OrderStatusDelivered, true}, // прыжок вперёд
		{domain.OrderStatusInPicking, domain.OrderStatusReceived, false},
		{domain.OrderStatusInRoute, domain.OrderStatusReady, false},
		{domain.OrderStatusReceived, domain.OrderStatusCancelled, true},
		{domain.OrderStatusInRoute, domain.OrderStatusCancelled, true},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusReceived, false},
		{domain.OrderStatusDelivered, domain.OrderStatusDelivered, true}, // same-status no-op
		{domain.OrderStatusReady, domain.OrderStatusReady, true},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}
