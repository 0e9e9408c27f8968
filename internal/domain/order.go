package domain

import "time"

// OrderStatus описывает жизненный цикл заказа дистрибьютора.
type OrderStatus string

const (
	// OrderStatusReceived — заказ принят и ожидает сборки.
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusInPicking — заказ собирается на складе.
	OrderStatusInPicking OrderStatus = "in_picking"
	// OrderStatusReady — заказ собран и готов к отправке.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusInRoute — заказ передан в доставку.
	OrderStatusInRoute OrderStatus = "in_route"
	// OrderStatusDelivered — заказ доставлен клиенту (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusRank задаёт порядок прямого движения по цепочке статусов.
var statusRank = map[OrderStatus]int{
	OrderStatusReceived:  0,
	OrderStatusInPicking: 1,
	OrderStatusReady:     2,
	OrderStatusInRoute:   3,
	OrderStatusDelivered: 4,
}

// ParseOrderStatus валидирует строковое значение статуса.
// Неизвестные значения отклоняются, а не приводятся к умолчанию.
func ParseOrderStatus(value string) (OrderStatus, error) {
	switch OrderStatus(value) {
	case OrderStatusReceived, OrderStatusInPicking, OrderStatusReady,
		OrderStatusInRoute, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(value), nil
	default:
		return "", ErrInvalidStatus
	}
}

// IsTerminal сообщает, является ли статус конечным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода из текущего статуса.
// Разрешено движение вперёд по цепочке (с пропуском шагов) и отмена
// из любого нетерминального статуса. Переход в тот же статус допустим
// как no-op и обрабатывается на уровне сервиса.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// OrderLine представляет одну позицию заказа. После создания заказа
// позиция неизменяема: цена зафиксирована на момент оформления и не
// пересчитывается при изменениях каталога.
type OrderLine struct {
	ID        string
	ProductID string
	// VariantID пуст, если позиция оформлена без варианта.
	VariantID string
	// ProductName и VariantName — снимок отображаемых имён на момент заказа.
	ProductName string
	VariantName string
	Qty         int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах,
	// вычисленная сервером из состояния каталога.
	UnitPriceMinor int64
	// TotalMinor = UnitPriceMinor * Qty.
	TotalMinor int64
	CreatedAt  time.Time
}

// Order агрегирует заказ, его позиции и производные суммы.
type Order struct {
	ID              string
	CompanyID       string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryType    string
	PaymentMethod   string
	Notes           string
	Status          OrderStatus
	// Суммы вычисляются сервером; значения клиента игнорируются.
	SubtotalMinor    int64
	DeliveryFeeMinor int64
	TotalMinor       int64
	Lines            []OrderLine
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CompanyID == "" {
		errs = append(errs, ErrCompanyIDRequired)
	}
	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}
	if o.DeliveryFeeMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем суммы заказа с суммами позиций.
	var subtotal int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrPriceNegative)
		}
		if line.TotalMinor != int64(line.Qty)*line.UnitPriceMinor {
			errs = append(errs, ErrLineTotalMismatch)
		}
		subtotal += line.TotalMinor
	}
	if subtotal != o.SubtotalMinor {
		errs = append(errs, ErrSubtotalMismatch)
	}
	if o.TotalMinor != o.SubtotalMinor+o.DeliveryFeeMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
