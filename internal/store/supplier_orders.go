package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pharmapos/m/domain"
)

const supplierOrderColumns = `so.id, so.product_id, p.name AS product_name, so.supplier_name, so.quantity, so.unit_cost,
	so.status, so.batch_id, so.created_at, so.received_at`

// CreateSupplierOrder records a pending replenishment request.
func (s *Store) CreateSupplierOrder(ctx context.Context, so domain.SupplierOrder) (domain.SupplierOrder, error) {
	so.SupplierName = strings.TrimSpace(so.SupplierName)
	switch {
	case so.SupplierName == "":
		return domain.SupplierOrder{}, fail(ErrInvalid, "supplier_name is required")
	case so.Quantity <= 0:
		return domain.SupplierOrder{}, fail(ErrInvalid, "quantity must be positive")
	case so.UnitCost.IsNegative():
		return domain.SupplierOrder{}, fail(ErrInvalid, "unit_cost must not be negative")
	}
	p, err := s.Product(ctx, so.ProductID)
	if err != nil {
		return domain.SupplierOrder{}, err
	}

	so.ProductName = p.Name
	so.Status = domain.SupplierOrderPending
	err = s.db.QueryRowxContext(ctx, s.q(`INSERT INTO supplier_orders (product_id, supplier_name, quantity, unit_cost, status)
		VALUES (?, ?, ?, ?, ?) RETURNING id, created_at`),
		so.ProductID, so.SupplierName, so.Quantity, so.UnitCost, so.Status).Scan(&so.ID, &so.CreatedAt)
	if err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "insert supplier order")
	}
	return so, nil
}

func (s *Store) ListSupplierOrders(ctx context.Context) ([]domain.SupplierOrder, error) {
	orders := []domain.SupplierOrder{}
	err := s.db.SelectContext(ctx, &orders, s.q(`SELECT `+supplierOrderColumns+`
		FROM supplier_orders so JOIN products p ON p.id = so.product_id ORDER BY so.id DESC`))
	if err != nil {
		return nil, errors.Wrap(err, "list supplier orders")
	}
	return orders, nil
}

// ReceiveSupplierOrder books a delivered order: a batch is created with the
// ordered quantity and the product's stock raised by the same amount.
func (s *Store) ReceiveSupplierOrder(ctx context.Context, id int64, batchNumber, expirationDate string) (domain.SupplierOrder, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return domain.SupplierOrder{}, fail(ErrInvalid, "batch_number is required")
	}
	if _, err := time.Parse(time.DateOnly, expirationDate); err != nil {
		return domain.SupplierOrder{}, fail(ErrInvalid, "expiration_date must be in YYYY-MM-DD format")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var so domain.SupplierOrder
	if err := tx.GetContext(ctx, &so, tx.Rebind(`SELECT `+supplierOrderColumns+`
		FROM supplier_orders so JOIN products p ON p.id = so.product_id WHERE so.id = ?`), id); err != nil {
		return domain.SupplierOrder{}, notFound(err, "supplier order %d", id)
	}
	if so.Status != domain.SupplierOrderPending {
		return domain.SupplierOrder{}, fail(ErrConflict, "supplier order %d already %s", id, so.Status)
	}

	var batchID int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO batches (product_id, batch_number, expiration_date, quantity) VALUES (?, ?, ?, ?) RETURNING id`),
		so.ProductID, batchNumber, expirationDate, so.Quantity).Scan(&batchID)
	if err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "insert batch")
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		so.Quantity, so.ProductID); err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "raise stock")
	}
	receivedAt := s.now().UTC().Format(time.DateTime)
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE supplier_orders SET status = ?, batch_id = ?, received_at = ? WHERE id = ?`),
		domain.SupplierOrderReceived, batchID, receivedAt, id); err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "mark received")
	}
	if err := tx.Commit(); err != nil {
		return domain.SupplierOrder{}, errors.Wrap(err, "commit")
	}

	so.Status = domain.SupplierOrderReceived
	so.BatchID = &batchID
	so.ReceivedAt = &receivedAt
	return so, nil
}
