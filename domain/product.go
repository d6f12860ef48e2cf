package domain

import "github.com/shopspring/decimal"

// AnvisaLabel is the regulatory classification of a medication.
type AnvisaLabel string

const (
	LabelOverTheCounter AnvisaLabel = "over-the-counter"
	LabelRed            AnvisaLabel = "red-label"
	LabelBlack          AnvisaLabel = "black-label"
)

// Controlled reports whether the label marks a prescription-only medication.
// Unrecognized labels are treated as uncontrolled.
func (l AnvisaLabel) Controlled() bool {
	return l == LabelRed || l == LabelBlack
}

// Product is a sellable item of the catalog.
type Product struct {
	ID                   int64           `db:"id" json:"id"`
	Name                 string          `db:"name" json:"name"`
	Barcode              string          `db:"barcode" json:"barcode"`
	Price                decimal.Decimal `db:"price" json:"price"`
	StockQuantity        int             `db:"stock_quantity" json:"stock_quantity"`
	AnvisaLabel          AnvisaLabel     `db:"anvisa_label" json:"anvisa_label"`
	RequiresPrescription bool            `db:"requires_prescription" json:"requires_prescription"`
	MaxQuantityPerSale   *int            `db:"max_quantity_per_sale" json:"max_quantity_per_sale,omitempty"`
	IsActive             bool            `db:"is_active" json:"is_active"`
	CreatedAt            string          `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt            string          `db:"updated_at" json:"updated_at,omitempty"`
}

// SaleLimit returns the per-sale ceiling and whether one is set.
// Zero or negative limits count as unset.
func (p Product) SaleLimit() (int, bool) {
	if p.MaxQuantityPerSale == nil || *p.MaxQuantityPerSale <= 0 {
		return 0, false
	}
	return *p.MaxQuantityPerSale, true
}

// Batch is a received lot of a product.
type Batch struct {
	ID             int64  `db:"id" json:"id"`
	ProductID      int64  `db:"product_id" json:"product_id"`
	BatchNumber    string `db:"batch_number" json:"batch_number"`
	ExpirationDate string `db:"expiration_date" json:"expiration_date"`
	Quantity       int    `db:"quantity" json:"quantity"`
	CreatedAt      string `db:"created_at" json:"created_at,omitempty"`
}
