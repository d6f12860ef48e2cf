package domain

import "github.com/shopspring/decimal"

// Supplier order statuses.
const (
	SupplierOrderPending  = "pending"
	SupplierOrderReceived = "received"
)

// SupplierOrder is a replenishment request sent to a supplier.
type SupplierOrder struct {
	ID           int64           `db:"id" json:"id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	SupplierName string          `db:"supplier_name" json:"supplier_name"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Status       string          `db:"status" json:"status"`
	BatchID      *int64          `db:"batch_id" json:"batch_id,omitempty"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	ReceivedAt   *string         `db:"received_at" json:"received_at,omitempty"`
}
