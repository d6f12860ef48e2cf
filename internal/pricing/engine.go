// Package pricing computes per-line discounts for a sale.
package pricing

import (
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

// BulkQuantity is the quantity above which the bulk floor applies.
const BulkQuantity = 5

var (
	rateElderly   = decimal.NewFromInt(10)
	rateInsurance = decimal.NewFromInt(15)
	rateBulkFloor = decimal.NewFromInt(5)
)

// Line is the priced result for one line item.
type Line struct {
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Rate returns the discount percentage for a client buying quantity units.
// A nil client is a walk-in sale.
func Rate(client *domain.Client, quantity int) decimal.Decimal {
	rate := decimal.Zero
	if client != nil {
		switch client.ClientType {
		case domain.ClientElderly:
			rate = rateElderly
		case domain.ClientInsurance:
			rate = rateInsurance
		}
	}
	if quantity > BulkQuantity {
		rate = decimal.Max(rate, rateBulkFloor)
	}
	return rate
}

// ComputeDiscount returns the discount on quantity units of product at its
// catalog price. The result is not rounded.
func ComputeDiscount(product domain.Product, client *domain.Client, quantity int) decimal.Decimal {
	return discount(product.Price, client, quantity)
}

// ComputeLine prices a line at the captured unitPrice.
func ComputeLine(product domain.Product, client *domain.Client, quantity int, unitPrice decimal.Decimal) Line {
	if quantity <= 0 {
		return Line{Discount: decimal.Zero, Total: decimal.Zero}
	}
	d := discount(unitPrice, client, quantity)
	return Line{
		Discount: d,
		Total:    Subtotal(unitPrice, quantity).Sub(d),
	}
}

// Subtotal is unitPrice * quantity.
func Subtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func discount(unitPrice decimal.Decimal, client *domain.Client, quantity int) decimal.Decimal {
	if quantity <= 0 || !unitPrice.IsPositive() {
		return decimal.Zero
	}
	return Subtotal(unitPrice, quantity).Mul(Rate(client, quantity)).Shift(-2)
}

// Round renders an amount at currency precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
