package domain

import "time"

// FinancialEntryKind различает дебиторскую и кредиторскую задолженность.
type FinancialEntryKind string

const (
	// FinancialEntryReceivable — деньги, причитающиеся компании от клиента.
	FinancialEntryReceivable FinancialEntryKind = "receivable"
	// FinancialEntryPayable — деньги, которые компания должна контрагенту.
	FinancialEntryPayable FinancialEntryKind = "payable"
)

// FinancialEntryStatus описывает состояние финансовой записи.
type FinancialEntryStatus string

const (
	// FinancialEntryPending — запись создана, оплата ещё не получена.
	FinancialEntryPending FinancialEntryStatus = "pending"
	// FinancialEntryPaid — оплата получена; переход односторонний.
	FinancialEntryPaid FinancialEntryStatus = "paid"
)

// FinancialEntry — запись финансовой книги компании. При создании заказа
// порождается ровно одна запись вида receivable со статусом pending,
// связанная с заказом по OrderID. Статус paid она получает только как
// побочный эффект доставки заказа.
type FinancialEntry struct {
	ID          string
	CompanyID   string
	OrderID     string
	Kind        FinancialEntryKind
	AmountMinor int64
	Status      FinancialEntryStatus
	// PaidAt заполняется в момент перехода в статус paid.
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты финансовой записи.
func (e *FinancialEntry) ValidateInvariants() []error {
	var errs []error

	if e.CompanyID == "" {
		errs = append(errs, ErrCompanyIDRequired)
	}
	if e.Kind != FinancialEntryReceivable && e.Kind != FinancialEntryPayable {
		errs = append(errs, ErrFinancialKindInvalid)
	}
	if e.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if e.Kind == FinancialEntryReceivable && e.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}

	return errs
}
