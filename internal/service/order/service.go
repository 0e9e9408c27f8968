// Package order реализует сценарии оформления и жизненного цикла заказа:
// валидацию корзины с авторитетным ценообразованием, атомарное создание
// заказа с финансовой записью и переходы статусов с побочными эффектами.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
	"github.com/vladislavdragonenkov/dop/internal/metrics"
	"github.com/vladislavdragonenkov/dop/internal/service/pricing"
)

// Типы событий, публикуемых сервисом через transactional outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventReceivablePaid     = "finance.receivable_paid"

	aggregateOrder = "order"
)

// LineInput — позиция корзины, присланная клиентом. Цена намеренно
// отсутствует: она всегда вычисляется сервером.
type LineInput struct {
	ProductID string
	VariantID string
	Qty       int32
}

// CreateInput — параметры создания заказа.
type CreateInput struct {
	CompanyID       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryType    string
	PaymentMethod   string
	Notes           string
	Lines           []LineInput
	// ReorderFromID — идентификатор прошлого заказа для повторного оформления.
	// Позиции берутся из него и заново проверяются по текущему каталогу.
	ReorderFromID string
}

// TransitionInput — параметры обновления заказа. Nil-поля не изменяются.
type TransitionInput struct {
	Status *string
	Notes  *string
	Actor  string
}

// Service оркестрирует операции над заказами поверх транзакционного хранилища.
type Service struct {
	store   domain.Store
	audit   domain.AuditRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// NewService создаёт сервис заказов.
func NewService(store domain.Store, audit domain.AuditRepository, orderMetrics *metrics.OrderMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Service{
		store:   store,
		audit:   audit,
		metrics: orderMetrics,
		logger:  logger.WithField("component", "order_service"),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(store domain.Store, audit domain.AuditRepository, logger *log.Entry) *Service {
	return NewService(store, audit, nil, logger)
}

// Create оформляет заказ атомарно: проверка компании, валидация позиций
// с вычислением цен, запись заказа, позиций и pending receivable, постановка
// события в outbox. Любая ошибка откатывает транзакцию целиком, частичных
// заказов не существует.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Order, error) {
	startedAt := time.Now()

	var created domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		company, err := tx.Catalog().GetCompany(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		if !company.Active {
			return domain.ErrCompanyNotFound
		}

		lines := input.Lines
		if input.ReorderFromID != "" {
			lines, err = s.reorderLines(ctx, tx, input.CompanyID, input.ReorderFromID)
			if err != nil {
				return err
			}
		}

		if strings.TrimSpace(input.CustomerName) == "" {
			return domain.ErrCustomerNameRequired
		}
		if len(lines) == 0 {
			return domain.ErrEmptyOrder
		}

		now := time.Now().UTC()
		orderID := uuid.NewString()

		validated := make([]domain.OrderLine, 0, len(lines))
		var subtotal int64
		for idx, line := range lines {
			orderLine, err := s.buildLine(ctx, tx.Catalog(), input.CompanyID, line, now)
			if err != nil {
				// Индекс позиции сохраняется в ошибке, чтобы клиент
				// мог указать на конкретную строку корзины.
				return domain.NewLineError(idx, err)
			}
			subtotal += orderLine.TotalMinor
			validated = append(validated, orderLine)
		}

		order := domain.Order{
			ID:              orderID,
			CompanyID:       input.CompanyID,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
			DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
			DeliveryType:    input.DeliveryType,
			PaymentMethod:   input.PaymentMethod,
			Notes:           input.Notes,
			Status:          domain.OrderStatusReceived,
			SubtotalMinor:   subtotal,
			// Стоимость доставки вычисляется сервером; пока тариф нулевой.
			DeliveryFeeMinor: 0,
			TotalMinor:       subtotal,
			Lines:            validated,
			Version:          0,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return errors.Join(errs...)
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		entry := domain.FinancialEntry{
			ID:          uuid.NewString(),
			CompanyID:   order.CompanyID,
			OrderID:     order.ID,
			Kind:        domain.FinancialEntryReceivable,
			AmountMinor: order.TotalMinor,
			Status:      domain.FinancialEntryPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Finance().Create(ctx, entry); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, order.ID, EventOrderCreated, orderCreatedPayload{
			OrderID:    order.ID,
			CompanyID:  order.CompanyID,
			TotalMinor: order.TotalMinor,
			Status:     string(order.Status),
			OccurredAt: now,
		}); err != nil {
			return err
		}

		created = order
		return nil
	})

	if s.metrics != nil {
		s.metrics.RecordCreateDuration(time.Since(startedAt))
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCreateFailed()
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.appendAudit(ctx, created.ID, "order_created", "order placed with "+strconv.Itoa(len(created.Lines))+" line(s)", created.CustomerName)

	s.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"company_id":  created.CompanyID,
		"total_minor": created.TotalMinor,
		"lines":       len(created.Lines),
	}).Info("Order created")

	return created, nil
}

// Transition применяет частичное обновление заказа: смену статуса и/или
// заметок. Переход в тот же статус — no-op. Первый приход в delivered
// закрывает pending receivable записи заказа в той же транзакции.
func (s *Service) Transition(ctx context.Context, principal domain.Principal, orderID string, input TransitionInput) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	var (
		updated       domain.Order
		previous      domain.OrderStatus
		statusChanged bool
		paidEntries   int
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !principal.CanAccessCompany(order.CompanyID) {
			return domain.ErrForbidden
		}

		previous = order.Status
		statusChanged = false
		paidEntries = 0
		changed := false

		if input.Status != nil {
			next, err := domain.ParseOrderStatus(*input.Status)
			if err != nil {
				return err
			}
			if next != order.Status {
				if !order.Status.CanTransitionTo(next) {
					return domain.ErrStatusTransition
				}
				order.Status = next
				statusChanged = true
				changed = true
			}
		}

		if input.Notes != nil && *input.Notes != order.Notes {
			order.Notes = *input.Notes
			changed = true
		}

		if !changed {
			updated = order
			return nil
		}

		now := time.Now().UTC()
		order.UpdatedAt = now
		if err := tx.Orders().Save(ctx, order); err != nil {
			return err
		}
		order.Version++

		if statusChanged && order.Status == domain.OrderStatusDelivered {
			paidEntries, err = tx.Finance().MarkReceivablesPaid(ctx, order.ID, now)
			if err != nil {
				return err
			}
			if paidEntries > 0 {
				if err := s.enqueueEvent(ctx, tx, order.ID, EventReceivablePaid, receivablePaidPayload{
					OrderID:    order.ID,
					CompanyID:  order.CompanyID,
					Entries:    paidEntries,
					PaidAt:     now,
					OccurredAt: now,
				}); err != nil {
					return err
				}
			}
		}

		if statusChanged {
			if err := s.enqueueEvent(ctx, tx, order.ID, EventOrderStatusChanged, statusChangedPayload{
				OrderID:    order.ID,
				CompanyID:  order.CompanyID,
				From:       string(previous),
				To:         string(order.Status),
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})

	if err != nil {
		if s.metrics != nil && (errors.Is(err, domain.ErrStatusTransition) || errors.Is(err, domain.ErrInvalidStatus)) {
			s.metrics.RecordTransitionFailed()
		}
		return domain.Order{}, err
	}

	if statusChanged {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(updated.Status))
			if paidEntries > 0 {
				s.metrics.RecordReceivablesPaid(paidEntries)
			}
		}

		s.appendAudit(ctx, updated.ID, "status_changed", string(previous)+" -> "+string(updated.Status), input.Actor)

		s.logger.WithFields(log.Fields{
			"order_id": updated.ID,
			"from":     previous,
			"to":       updated.Status,
		}).Info("Order status changed")

		if paidEntries > 0 {
			s.appendAudit(ctx, updated.ID, "receivable_paid", "settled "+strconv.Itoa(paidEntries)+" receivable entry(ies)", input.Actor)
		}
	}

	return updated, nil
}

// Get возвращает заказ с позициями, проверяя доступ к компании заказа.
func (s *Service) Get(ctx context.Context, principal domain.Principal, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	var order domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !principal.CanAccessCompany(order.CompanyID) {
			return domain.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// List возвращает заказы компании, свежие первыми.
func (s *Service) List(ctx context.Context, principal domain.Principal, companyID string, limit int) ([]domain.Order, error) {
	if companyID == "" {
		return nil, domain.ErrCompanyIDRequired
	}
	if !principal.CanAccessCompany(companyID) {
		return nil, domain.ErrForbidden
	}

	var orders []domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		orders, err = tx.Orders().ListByCompany(ctx, companyID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Finance возвращает финансовые записи заказа, проверяя доступ.
func (s *Service) Finance(ctx context.Context, principal domain.Principal, orderID string) ([]domain.FinancialEntry, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}

	var entries []domain.FinancialEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !principal.CanAccessCompany(order.CompanyID) {
			return domain.ErrForbidden
		}
		entries, err = tx.Finance().ListByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AuditTrail возвращает записи аудита заказа.
func (s *Service) AuditTrail(ctx context.Context, principal domain.Principal, orderID string) ([]domain.AuditEvent, error) {
	if _, err := s.Get(ctx, principal, orderID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, orderID)
}

// buildLine валидирует одну позицию корзины и фиксирует снимок цены.
func (s *Service) buildLine(ctx context.Context, catalog domain.CatalogReader, companyID string, line LineInput, now time.Time) (domain.OrderLine, error) {
	if line.Qty <= 0 {
		return domain.OrderLine{}, domain.ErrQuantityInvalid
	}

	quote, err := pricing.Resolve(ctx, catalog, companyID, line.ProductID, line.VariantID)
	if err != nil {
		return domain.OrderLine{}, err
	}

	return domain.OrderLine{
		ID:             uuid.NewString(),
		ProductID:      line.ProductID,
		VariantID:      line.VariantID,
		ProductName:    quote.ProductName,
		VariantName:    quote.VariantName,
		Qty:            line.Qty,
		UnitPriceMinor: quote.UnitPriceMinor,
		TotalMinor:     quote.UnitPriceMinor * int64(line.Qty),
		CreatedAt:      now,
	}, nil
}

// reorderLines восстанавливает позиции прошлого заказа для повторного
// оформления. Берутся только товар, вариант и количество: цены будут
// вычислены заново по текущему каталогу.
func (s *Service) reorderLines(ctx context.Context, tx domain.Tx, companyID, reorderFromID string) ([]LineInput, error) {
	prior, err := tx.Orders().Get(ctx, reorderFromID)
	if err != nil {
		return nil, err
	}
	if prior.CompanyID != companyID {
		return nil, domain.ErrOrderNotFound
	}

	lines := make([]LineInput, 0, len(prior.Lines))
	for _, line := range prior.Lines {
		lines = append(lines, LineInput{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Qty:       line.Qty,
		})
	}
	return lines, nil
}

func (s *Service) enqueueEvent(ctx context.Context, tx domain.Tx, orderID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       body,
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
	return nil
}

// appendAudit пишет запись аудита после фиксации транзакции. Ошибка аудита
// не отменяет уже совершённую операцию и только логируется.
func (s *Service) appendAudit(ctx context.Context, orderID, eventType, detail, actor string) {
	if s.audit == nil {
		return
	}

	err := s.audit.Append(ctx, domain.AuditEvent{
		OrderID:  orderID,
		Type:     eventType,
		Detail:   detail,
		Actor:    actor,
		Occurred: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to append audit event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordAuditEvent()
	}
}

type orderCreatedPayload struct {
	OrderID    string    `json:"order_id"`
	CompanyID  string    `json:"company_id"`
	TotalMinor int64     `json:"total_minor"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type statusChangedPayload struct {
	OrderID    string    `json:"order_id"`
	CompanyID  string    `json:"company_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

type receivablePaidPayload struct {
	OrderID    string    `json:"order_id"`
	CompanyID  string    `json:"company_id"`
	Entries    int       `json:"entries"`
	PaidAt     time.Time `json:"paid_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
