package order

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/dop/internal/domain"
	"github.com/vladislavdragonenkov/dop/internal/storage/memory"
)

// OrderLifecycleTestSuite тестирует полный жизненный цикл заказа.
type OrderLifecycleTestSuite struct {
	suite.Suite
	service *Service
	store   *memory.Store
	audit   domain.AuditRepository
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "lifecycle-test")

	now := time.Now().UTC()
	s.store = memory.NewStore()
	s.store.SeedCompany(domain.Company{ID: "company-1", Name: "Acme Distribution", Active: true, CreatedAt: now})
	s.store.SeedProduct(domain.Product{
		ID:             "product-1",
		CompanyID:      "company-1",
		Name:           "Mineral Water 1L",
		BasePriceMinor: 1000,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	s.store.SeedVariant(domain.ProductVariant{
		ID:                 "variant-1",
		ProductID:          "product-1",
		Name:               "Sparkling",
		PriceModifierMinor: 250,
		Active:             true,
		CreatedAt:          now,
	})

	s.audit = memory.NewAuditRepository()
	s.service = NewServiceWithoutMetrics(s.store, s.audit, logger)
}

func (s *OrderLifecycleTestSuite) transition(orderID, status string) (domain.Order, error) {
	principal := domain.Principal{UserID: "staff-1", CompanyID: "company-1", Role: domain.RoleCompanyStaff}
	return s.service.Transition(context.Background(), principal, orderID, TransitionInput{Status: &status, Actor: principal.UserID})
}

func (s *OrderLifecycleTestSuite) TestDeliveredLifecycle() {
	ctx := context.Background()
	admin := domain.Principal{UserID: "admin-1", Role: domain.RolePlatformAdmin}

	// 1. Создаём заказ
	order, err := s.service.Create(ctx, CreateInput{
		CompanyID:       "company-1",
		CustomerName:    "Maria Santos",
		CustomerPhone:   "+55 11 99999-0000",
		DeliveryAddress: "Rua Augusta 100",
		Lines: []LineInput{
			{ProductID: "product-1", VariantID: "variant-1", Qty: 3},
		},
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusReceived, order.Status)
	require.Equal(s.T(), int64(3750), order.TotalMinor) // (1000 + 250) * 3

	// 2. Проводим заказ по всей цепочке статусов
	for _, status := range []string{"in_picking", "ready", "in_route", "delivered"} {
		updated, err := s.transition(order.ID, status)
		require.NoError(s.T(), err)
		require.Equal(s.T(), status, string(updated.Status))
	}

	// 3. Доставка гасит дебиторскую запись
	entries, err := s.service.Finance(ctx, admin, order.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	require.Equal(s.T(), domain.FinancialEntryPaid, entries[0].Status)
	require.NotNil(s.T(), entries[0].PaidAt)
	require.Equal(s.T(), order.TotalMinor, entries[0].AmountMinor)

	// 4. Проверяем аудит: создание, четыре перехода и погашение дебиторки
	events, err := s.service.AuditTrail(ctx, admin, order.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 6)
	require.Equal(s.T(), "order_created", events[0].Type)

	// 5. Терминальный статус блокирует дальнейшие переходы
	_, err = s.transition(order.ID, "in_route")
	require.ErrorIs(s.T(), err, domain.ErrStatusTransition)
}

func (s *OrderLifecycleTestSuite) TestCancelledLifecycle() {
	ctx := context.Background()
	admin := domain.Principal{UserID: "admin-1", Role: domain.RolePlatformAdmin}

	order, err := s.service.Create(ctx, CreateInput{
		CompanyID:    "company-1",
		CustomerName: "Maria Santos",
		Lines:        []LineInput{{ProductID: "product-1", Qty: 2}},
	})
	require.NoError(s.T(), err)

	_, err = s.transition(order.ID, "in_picking")
	require.NoError(s.T(), err)

	cancelled, err := s.transition(order.ID, "cancelled")
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCancelled, cancelled.Status)

	// Отмена не гасит дебиторскую запись
	entries, err := s.service.Finance(ctx, admin, order.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	require.Equal(s.T(), domain.FinancialEntryPending, entries[0].Status)

	_, err = s.transition(order.ID, "received")
	require.ErrorIs(s.T(), err, domain.ErrStatusTransition)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
