package pricing

import (
	"context"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// Quote — авторитетная цена позиции, вычисленная из состояния каталога.
// Цена, присланная клиентом, никогда не участвует в расчёте.
type Quote struct {
	UnitPriceMinor int64
	ProductName    string
	VariantName    string
}

// Resolve вычисляет цену за единицу товара для компании companyID:
// base_price товара плюс модификатор варианта (если вариант указан).
// Чтения выполняются через catalog текущей транзакции, поэтому
// конкурентные изменения каталога не могут дать устаревшую цену.
//
// Ошибки различимы по виду: ErrProductNotFound (товар не найден, неактивен
// или принадлежит другой компании), ErrVariantNotFound (вариант не найден
// или неактивен), ErrVariantMismatch (вариант чужого товара).
func Resolve(ctx context.Context, catalog domain.CatalogReader, companyID, productID, variantID string) (Quote, error) {
	product, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}
	if product.CompanyID != companyID || !product.Active {
		// Товар чужой компании не раскрывается: для клиента он не существует.
		return Quote{}, domain.ErrProductNotFound
	}

	quote := Quote{
		UnitPriceMinor: product.BasePriceMinor,
		ProductName:    product.Name,
	}

	if variantID == "" {
		return quote, nil
	}

	variant, err := catalog.GetVariant(ctx, variantID)
	if err != nil {
		return Quote{}, err
	}
	if variant.ProductID != product.ID {
		return Quote{}, domain.ErrVariantMismatch
	}
	if !variant.Active {
		return Quote{}, domain.ErrVariantNotFound
	}

	quote.UnitPriceMinor += variant.PriceModifierMinor
	quote.VariantName = variant.Name
	return quote, nil
}
