package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pharmapos/m/domain"
)

const productColumns = `id, name, barcode, price, stock_quantity, anvisa_label, requires_prescription,
	max_quantity_per_sale, is_active, created_at, updated_at`

// ListProducts returns the catalog ordered by name.
func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeInactive {
		query += ` WHERE is_active = ?`
	}
	query += ` ORDER BY name`

	products := []domain.Product{}
	var err error
	if includeInactive {
		err = s.db.SelectContext(ctx, &products, s.q(query))
	} else {
		err = s.db.SelectContext(ctx, &products, s.q(query), true)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// ActiveProducts is the product source of the sales screen.
func (s *Store) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.ListProducts(ctx, false)
}

func (s *Store) Product(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	if err := s.db.GetContext(ctx, &p, s.q(`SELECT `+productColumns+` FROM products WHERE id = ?`), id); err != nil {
		return domain.Product{}, notFound(err, "product %d", id)
	}
	return p, nil
}

// CreateProduct inserts p. Controlled labels always require a prescription.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	p.RequiresPrescription = p.RequiresPrescription || p.AnvisaLabel.Controlled()
	p.IsActive = true
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO products (name, barcode, price, stock_quantity, anvisa_label, requires_prescription, max_quantity_per_sale, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		p.Name, p.Barcode, p.Price, p.StockQuantity, p.AnvisaLabel, p.RequiresPrescription, p.MaxQuantityPerSale, p.IsActive).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, fail(ErrConflict, "barcode %s already registered", p.Barcode)
		}
		return domain.Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

// UpdateProduct rewrites the catalog fields of p. Stock is changed through
// AdjustStock and supplier receipts only.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	p.RequiresPrescription = p.RequiresPrescription || p.AnvisaLabel.Controlled()
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE products SET name = ?, barcode = ?, price = ?, anvisa_label = ?, requires_prescription = ?,
		max_quantity_per_sale = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		p.Name, p.Barcode, p.Price, p.AnvisaLabel, p.RequiresPrescription, p.MaxQuantityPerSale, p.IsActive, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fail(ErrConflict, "barcode %s already registered", p.Barcode)
		}
		return errors.Wrap(err, "update product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fail(ErrNotFound, "product %d not found", p.ID)
	}
	return nil
}

// AdjustStock adds delta, which may be negative, to a product's stock.
func (s *Store) AdjustStock(ctx context.Context, id int64, delta int) (domain.Product, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity + ? >= 0`), delta, id, delta)
	if err != nil {
		return domain.Product{}, errors.Wrap(err, "adjust stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p, err := s.Product(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		return domain.Product{}, &StockError{ProductName: p.Name, Available: p.StockQuantity}
	}
	return s.Product(ctx, id)
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fail(ErrInvalid, "name is required")
	case strings.TrimSpace(p.Barcode) == "":
		return fail(ErrInvalid, "barcode is required")
	case p.Price.IsNegative():
		return fail(ErrInvalid, "price must not be negative")
	case p.StockQuantity < 0:
		return fail(ErrInvalid, "stock_quantity must not be negative")
	}
	return nil
}

// ProductBatches lists the batches of a product that still hold stock,
// first-expiring first.
func (s *Store) ProductBatches(ctx context.Context, productID int64) ([]domain.Batch, error) {
	batches := []domain.Batch{}
	err := s.db.SelectContext(ctx, &batches, s.q(`SELECT id, product_id, batch_number, expiration_date, quantity, created_at
		FROM batches WHERE product_id = ? AND quantity > 0 ORDER BY expiration_date, id`), productID)
	if err != nil {
		return nil, errors.Wrapf(err, "list batches of product %d", productID)
	}
	return batches, nil
}

// ExpiringBatch is a batch with stock that expires within the alert window.
type ExpiringBatch struct {
	domain.Batch
	ProductName string `db:"product_name" json:"product_name"`
}

// ExpiringBatches returns stocked batches expiring on or before today + days.
func (s *Store) ExpiringBatches(ctx context.Context, days int) ([]ExpiringBatch, error) {
	cutoff := s.now().AddDate(0, 0, days).Format(time.DateOnly)
	items := []ExpiringBatch{}
	err := s.db.SelectContext(ctx, &items, s.q(`SELECT b.id, b.product_id, b.batch_number, b.expiration_date, b.quantity, b.created_at, p.name AS product_name
		FROM batches b
		JOIN products p ON p.id = b.product_id
		WHERE b.quantity > 0 AND b.expiration_date <= ?
		ORDER BY b.expiration_date ASC`), cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "list expiring batches")
	}
	return items, nil
}
