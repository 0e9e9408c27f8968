package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора компании.
	ErrCompanyIDRequired = errors.New("company_id is required")
	// Ошибка отсутствующего имени клиента в заказе.
	ErrCustomerNameRequired = errors.New("customer_name is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка заказа без единой позиции.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// Ошибка отрицательной цены.
	ErrPriceNegative = errors.New("price must be non-negative")
	// Ошибка отрицательной суммы.
	ErrAmountNegative = errors.New("amount must be non-negative")
	// Ошибка несоответствия суммы позиции произведению qty * unit_price.
	ErrLineTotalMismatch = errors.New("line total does not match qty * unit price")
	// Ошибка несоответствия subtotal сумме позиций.
	ErrSubtotalMismatch = errors.New("order subtotal does not match lines sum")
	// Ошибка несоответствия total сумме subtotal + delivery_fee.
	ErrTotalMismatch = errors.New("order total does not match subtotal + delivery fee")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")

	// ErrCompanyNotFound возвращается, если компания не найдена или неактивна.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrProductNotFound возвращается, если товар не найден, неактивен
	// или принадлежит другой компании.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound возвращается, если вариант не найден или неактивен.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrVariantMismatch возвращается, если вариант принадлежит другому товару.
	// Такие позиции отклоняются, а не исправляются молча.
	ErrVariantMismatch = errors.New("variant does not belong to product")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrFinancialEntryNotFound возвращается, если финансовая запись не найдена.
	ErrFinancialEntryNotFound = errors.New("financial entry not found")

	// ErrForbidden возвращается при попытке доступа к чужой компании.
	ErrForbidden = errors.New("access to company is forbidden")
	// ErrInvalidStatus возвращается для значения вне перечисления статусов.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrStatusTransition возвращается для недопустимого перехода статуса.
	ErrStatusTransition = errors.New("status transition is not allowed")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrFinancialKindInvalid возвращается для неизвестного вида финансовой записи.
	ErrFinancialKindInvalid = errors.New("invalid financial entry kind")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with different request")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// LineError привязывает ошибку валидации к индексу позиции заказа,
// чтобы клиент мог подсветить конкретную строку корзины.
type LineError struct {
	Index int
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Index, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// NewLineError оборачивает ошибку позиции с её индексом.
func NewLineError(index int, err error) error {
	return &LineError{Index: index, Err: err}
}

// AsLineError извлекает LineError из цепочки ошибок.
func AsLineError(err error) (*LineError, bool) {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		return lineErr, true
	}
	return nil, false
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
