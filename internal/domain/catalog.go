package domain

import "time"

// Company представляет арендатора (tenant) платформы — дистрибьютора.
// Все товары, заказы и финансовые записи принадлежат ровно одной компании.
type Company struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Product — товар каталога компании.
type Product struct {
	ID        string
	CompanyID string
	Name      string
	// BasePriceMinor — базовая цена в минимальных денежных единицах (сентаво).
	BasePriceMinor int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProductVariant — вариант товара; модификатор прибавляется к базовой цене родителя.
type ProductVariant struct {
	ID        string
	ProductID string
	Name      string
	// PriceModifierMinor прибавляется к BasePriceMinor родительского товара.
	PriceModifierMinor int64
	Active             bool
	CreatedAt          time.Time
}

// ValidateInvariants проверяет базовые инварианты товара.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.CompanyID == "" {
		errs = append(errs, ErrCompanyIDRequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.BasePriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}
