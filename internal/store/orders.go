package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/pricing"
)

// SubmitOrder is the local Order API. Inside one transaction it checks every
// line against current stock and the product's per-sale limit, prices it at the catalog
// price for the stored client, takes the stock from the requested batch or
// first-expiring batches, and records the order under a new invoice number.
func (s *Store) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	if len(req.Items) == 0 {
		return domain.Order{}, fail(ErrInvalid, "no items in sale")
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return domain.Order{}, fail(ErrInvalid, "payment_method is required")
	}
	if !domain.ValidPaymentMethod(paymentMethod) {
		return domain.Order{}, fail(ErrInvalid, "payment method %q is not accepted", paymentMethod)
	}
	// Per-sale limits apply to the product across all of its items.
	perProduct := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.Order{}, fail(ErrInvalid, "quantity for product %d must be positive", item.ProductID)
		}
		perProduct[item.ProductID] += item.Quantity
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var client *domain.Client
	if req.ClientID != nil {
		var c domain.Client
		if err := tx.GetContext(ctx, &c, tx.Rebind(`SELECT `+clientColumns+` FROM clients WHERE id = ? AND is_active = ?`), *req.ClientID, true); err != nil {
			return domain.Order{}, notFound(err, "client %d", *req.ClientID)
		}
		client = &c
	}

	order := domain.Order{
		InvoiceNumber:  s.invoiceNumber(),
		ClientID:       req.ClientID,
		SellerID:       req.SellerID,
		PaymentMethod:  paymentMethod,
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
	}

	for _, item := range req.Items {
		var p domain.Product
		if err := tx.GetContext(ctx, &p, tx.Rebind(`SELECT `+productColumns+` FROM products WHERE id = ? AND is_active = ?`), item.ProductID, true); err != nil {
			return domain.Order{}, notFound(err, "product %d", item.ProductID)
		}
		if limit, ok := p.SaleLimit(); ok && perProduct[p.ID] > limit {
			return domain.Order{}, fail(ErrInvalid, "Maximum %d units allowed per sale for %s", limit, p.Name)
		}
		if p.RequiresPrescription {
			order.PrescriptionRequired = true
		}

		if err := takeStock(ctx, tx, p, item); err != nil {
			return domain.Order{}, err
		}

		line := pricing.ComputeLine(p, client, item.Quantity, p.Price)
		subtotal := pricing.Round(pricing.Subtotal(p.Price, item.Quantity))
		discount := pricing.Round(line.Discount)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			BatchID:     item.BatchID,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
			Discount:    discount,
			TotalPrice:  subtotal.Sub(discount),
		})
		order.TotalAmount = order.TotalAmount.Add(subtotal)
		order.DiscountAmount = order.DiscountAmount.Add(discount)
	}
	order.TotalValue = order.TotalAmount.Sub(order.DiscountAmount)

	err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO orders (invoice_number, client_id, seller_id, payment_method, prescription_required, total_amount, discount_amount, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id, created_at`),
		order.InvoiceNumber, order.ClientID, order.SellerID, order.PaymentMethod, order.PrescriptionRequired,
		order.TotalAmount, order.DiscountAmount, order.TotalValue).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "insert order")
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO order_items (order_id, product_id, batch_id, quantity, unit_price, discount, total_price)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			item.OrderID, item.ProductID, item.BatchID, item.Quantity, item.UnitPrice, item.Discount, item.TotalPrice).Scan(&item.ID)
		if err != nil {
			return domain.Order{}, errors.Wrap(err, "insert order item")
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, errors.Wrap(err, "commit")
	}
	return order, nil
}

// takeStock decrements product stock and the batches it is drawn from.
// Stock not covered by any batch is taken from the product count alone.
func takeStock(ctx context.Context, tx *sqlx.Tx, p domain.Product, item domain.OrderItemRequest) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?`), item.Quantity, p.ID, item.Quantity)
	if err != nil {
		return errors.Wrap(err, "update product stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StockError{ProductName: p.Name, Available: p.StockQuantity}
	}

	if item.BatchID != nil {
		var available int
		if err := tx.GetContext(ctx, &available, tx.Rebind(`SELECT quantity FROM batches WHERE id = ? AND product_id = ?`), *item.BatchID, p.ID); err != nil {
			return notFound(err, "batch %d of product %d", *item.BatchID, p.ID)
		}
		if available < item.Quantity {
			return &StockError{ProductName: p.Name, Available: available}
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE batches SET quantity = quantity - ? WHERE id = ?`), item.Quantity, *item.BatchID)
		return errors.Wrap(err, "update batch stock")
	}

	var batches []domain.Batch
	if err := tx.SelectContext(ctx, &batches, tx.Rebind(`SELECT id, product_id, batch_number, expiration_date, quantity, created_at
		FROM batches WHERE product_id = ? AND quantity > 0 ORDER BY expiration_date, id`), p.ID); err != nil {
		return errors.Wrap(err, "list batches")
	}
	remaining := item.Quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE batches SET quantity = quantity - ? WHERE id = ?`), take, b.ID); err != nil {
			return errors.Wrap(err, "update batch stock")
		}
		remaining -= take
	}
	return nil
}

func (s *Store) invoiceNumber() string {
	return fmt.Sprintf("INV-%s-%s", s.now().Format("20060102"), uuid.NewString()[:8])
}

const orderColumns = `id, invoice_number, client_id, seller_id, payment_method, prescription_required,
	total_amount, discount_amount, total_value, created_at`

// Order loads an order with its items.
func (s *Store) Order(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	if err := s.db.GetContext(ctx, &o, s.q(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id); err != nil {
		return domain.Order{}, notFound(err, "order %d", id)
	}
	err := s.db.SelectContext(ctx, &o.Items, s.q(`SELECT oi.id, oi.order_id, oi.product_id, p.name AS product_name, oi.batch_id,
		oi.quantity, oi.unit_price, oi.discount, oi.total_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ? ORDER BY oi.id`), id)
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "load items of order %d", id)
	}
	return o, nil
}

// RecentOrders lists the latest orders without items.
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders := []domain.Order{}
	if err := s.db.SelectContext(ctx, &orders, s.q(`SELECT `+orderColumns+` FROM orders ORDER BY id DESC LIMIT ?`), limit); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// DailyReport summarizes the orders of one day.
type DailyReport struct {
	Date           string          `json:"date"`
	SalesCount     int             `json:"sales_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// DailySales sums the orders created on day (UTC).
func (s *Store) DailySales(ctx context.Context, day time.Time) (DailyReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var rows []struct {
		TotalAmount    decimal.Decimal `db:"total_amount"`
		DiscountAmount decimal.Decimal `db:"discount_amount"`
		TotalValue     decimal.Decimal `db:"total_value"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT total_amount, discount_amount, total_value FROM orders
		WHERE created_at >= ? AND created_at < ?`), start.Format(time.DateTime), end.Format(time.DateTime))
	if err != nil {
		return DailyReport{}, errors.Wrap(err, "daily sales")
	}

	report := DailyReport{
		Date:           start.Format(time.DateOnly),
		SalesCount:     len(rows),
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		Revenue:        decimal.Zero,
	}
	for _, r := range rows {
		report.TotalAmount = report.TotalAmount.Add(r.TotalAmount)
		report.DiscountAmount = report.DiscountAmount.Add(r.DiscountAmount)
		report.Revenue = report.Revenue.Add(r.TotalValue)
	}
	return report, nil
}
