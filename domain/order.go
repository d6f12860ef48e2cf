package domain

import "github.com/shopspring/decimal"

// OrderRequest is the normalized sale submitted to the Order API.
type OrderRequest struct {
	ClientID             *int64             `json:"client_id,omitempty"`
	SellerID             *int64             `json:"seller_id,omitempty"`
	PaymentMethod        string             `json:"payment_method"`
	PrescriptionRequired bool               `json:"prescription_required"`
	Items                []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	BatchID   *int64          `json:"batch_id,omitempty"`
}

// Order is a sale accepted by the Order API.
type Order struct {
	ID                   int64           `db:"id" json:"id"`
	InvoiceNumber        string          `db:"invoice_number" json:"invoice_number"`
	ClientID             *int64          `db:"client_id" json:"client_id,omitempty"`
	SellerID             *int64          `db:"seller_id" json:"seller_id,omitempty"`
	PaymentMethod        string          `db:"payment_method" json:"payment_method"`
	PrescriptionRequired bool            `db:"prescription_required" json:"prescription_required"`
	TotalAmount          decimal.Decimal `db:"total_amount" json:"total_amount"`
	DiscountAmount       decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalValue           decimal.Decimal `db:"total_value" json:"total_value"`
	CreatedAt            string          `db:"created_at" json:"created_at"`
	Items                []OrderItem     `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	BatchID     *int64          `db:"batch_id" json:"batch_id,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
}

// Receipt is the display-ready summary of a completed sale.
type Receipt struct {
	OrderID        int64         `json:"order_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	PaymentMethod  string        `json:"payment_method"`
	Items          []ReceiptItem `json:"items"`
	TotalAmount    Money         `json:"total_amount"`
	DiscountAmount Money         `json:"discount_amount"`
	FinalAmount    Money         `json:"final_amount"`
}

type ReceiptItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	TotalPrice  Money  `json:"total_price"`
}

// PaymentMethod is a way the counter takes payment.
type PaymentMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PaymentMethods are the accepted payment methods.
var PaymentMethods = []PaymentMethod{
	{Code: "cash", Name: "Cash"},
	{Code: "credit_card", Name: "Credit card"},
	{Code: "debit_card", Name: "Debit card"},
	{Code: "pix", Name: "PIX"},
}

// ValidPaymentMethod reports whether code is an accepted payment method.
func ValidPaymentMethod(code string) bool {
	for _, pm := range PaymentMethods {
		if pm.Code == code {
			return true
		}
	}
	return false
}
