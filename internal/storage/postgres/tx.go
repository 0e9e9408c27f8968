package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// pgTx — представление domain.Tx поверх открытой SQL-транзакции.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Catalog() domain.CatalogReader     { return (*catalogReader)(t) }
func (t *pgTx) Orders() domain.OrderRepository    { return (*orderRepository)(t) }
func (t *pgTx) Finance() domain.FinanceRepository { return (*financeRepository)(t) }
func (t *pgTx) Outbox() domain.OutboxEnqueuer     { return (*outboxEnqueuer)(t) }

type catalogReader pgTx

func (r *catalogReader) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	var company domain.Company
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, name, active, created_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&company.ID, &company.Name, &company.Active, &company.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Company{}, domain.ErrCompanyNotFound
		}
		return domain.Company{}, fmt.Errorf("select company: %w", err)
	}
	return company, nil
}

func (r *catalogReader) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, company_id, name, base_price_minor, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.CompanyID, &product.Name,
		&product.BasePriceMinor, &product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *catalogReader) GetVariant(ctx context.Context, id string) (domain.ProductVariant, error) {
	var variant domain.ProductVariant
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, product_id, name, price_modifier_minor, active, created_at
		FROM product_variants
		WHERE id = $1
	`, id).Scan(
		&variant.ID, &variant.ProductID, &variant.Name,
		&variant.PriceModifierMinor, &variant.Active, &variant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductVariant{}, domain.ErrVariantNotFound
		}
		return domain.ProductVariant{}, fmt.Errorf("select variant: %w", err)
	}
	return variant, nil
}

type orderRepository pgTx

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, company_id, customer_name, customer_email, customer_phone,
			delivery_address, delivery_type, payment_method, notes, status,
			subtotal_minor, delivery_fee_minor, total_minor, version,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		order.ID, order.CompanyID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.DeliveryAddress, order.DeliveryType, order.PaymentMethod, order.Notes, string(order.Status),
		order.SubtotalMinor, order.DeliveryFeeMinor, order.TotalMinor, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		variantID := sql.NullString{String: line.VariantID, Valid: line.VariantID != ""}
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO order_lines (
				id, order_id, product_id, variant_id, product_name, variant_name,
				qty, unit_price_minor, total_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			line.ID, order.ID, line.ProductID, variantID, line.ProductName, line.VariantName,
			line.Qty, line.UnitPriceMinor, line.TotalMinor, line.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	order, err := scanOrder(r.tx.QueryRowContext(ctx, selectOrderQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]domain.Order, error) {
	query := selectOrderQuery + `
		WHERE company_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.tx.QueryContext(ctx, query+" LIMIT $2", companyID, limit)
	} else {
		rows, err = r.tx.QueryContext(ctx, query, companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    notes = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status), order.Notes, order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

const selectOrderQuery = `
	SELECT id, company_id, customer_name, customer_email, customer_phone,
	       delivery_address, delivery_type, payment_method, notes, status,
	       subtotal_minor, delivery_fee_minor, total_minor, version,
	       created_at, updated_at
	FROM orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var status string
	err := row.Scan(
		&order.ID, &order.CompanyID, &order.CustomerName, &order.CustomerEmail, &order.CustomerPhone,
		&order.DeliveryAddress, &order.DeliveryType, &order.PaymentMethod, &order.Notes, &status,
		&order.SubtotalMinor, &order.DeliveryFeeMinor, &order.TotalMinor, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, product_id, variant_id, product_name, variant_name,
		       qty, unit_price_minor, total_minor, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		var variantID sql.NullString
		if err := rows.Scan(
			&line.ID, &line.ProductID, &variantID, &line.ProductName, &line.VariantName,
			&line.Qty, &line.UnitPriceMinor, &line.TotalMinor, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		line.VariantID = variantID.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

type financeRepository pgTx

func (r *financeRepository) Create(ctx context.Context, entry domain.FinancialEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO financial_entries (
			id, company_id, order_id, kind, amount_minor, status, paid_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		entry.ID, entry.CompanyID, entry.OrderID, string(entry.Kind),
		entry.AmountMinor, string(entry.Status), entry.PaidAt, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert financial entry: %w", err)
	}
	return nil
}

func (r *financeRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.FinancialEntry, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, company_id, order_id, kind, amount_minor, status, paid_at, created_at, updated_at
		FROM financial_entries
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list financial entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.FinancialEntry, 0)
	for rows.Next() {
		var entry domain.FinancialEntry
		var kind, status string
		var paidAt sql.NullTime
		if err := rows.Scan(
			&entry.ID, &entry.CompanyID, &entry.OrderID, &kind,
			&entry.AmountMinor, &status, &paidAt, &entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan financial entry: %w", err)
		}
		entry.Kind = domain.FinancialEntryKind(kind)
		entry.Status = domain.FinancialEntryStatus(status)
		if paidAt.Valid {
			t := paidAt.Time
			entry.PaidAt = &t
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate financial entries: %w", err)
	}

	return entries, nil
}

func (r *financeRepository) MarkReceivablesPaid(ctx context.Context, orderID string, paidAt time.Time) (int, error) {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE financial_entries
		SET status = 'paid',
		    paid_at = $1,
		    updated_at = $1
		WHERE order_id = $2
		  AND kind = 'receivable'
		  AND status = 'pending'
	`, paidAt, orderID)
	if err != nil {
		return 0, fmt.Errorf("mark receivables paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

type outboxEnqueuer pgTx

func (r *outboxEnqueuer) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,NOW(),NOW())
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload,
	)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message: %w", err)
	}
	return msg, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
