package sale

import (
	"strconv"

	"pharmapos/m/domain"
	"pharmapos/m/internal/pricing"
)

func (c *Composer) orderRequest(paymentMethod string) domain.OrderRequest {
	req := domain.OrderRequest{
		SellerID:             c.sellerID,
		PaymentMethod:        paymentMethod,
		PrescriptionRequired: c.RequiresPrescription(),
		Items:                make([]domain.OrderItemRequest, 0, len(c.lines)),
	}
	if c.client != nil {
		id := c.client.ID
		req.ClientID = &id
	}
	for _, line := range c.lines {
		item := domain.OrderItemRequest{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: pricing.Round(line.UnitPrice),
		}
		if line.Batch != nil {
			id := line.Batch.ID
			item.BatchID = &id
		}
		req.Items = append(req.Items, item)
	}
	return req
}

// receipt maps the accepted order into its display form. Amounts reported by
// the Order API take precedence over the locally composed ones.
func (c *Composer) receipt(order domain.Order, paymentMethod string) *domain.Receipt {
	totals := c.Totals()
	total, discount := totals.Subtotal, totals.Discount
	if !order.TotalAmount.IsZero() {
		total, discount = order.TotalAmount, order.DiscountAmount
	}
	final := pricing.Round(total).Sub(pricing.Round(discount))
	if !order.TotalValue.IsZero() {
		final = order.TotalValue
	}
	r := &domain.Receipt{
		OrderID:        order.ID,
		InvoiceNumber:  order.InvoiceNumber,
		PaymentMethod:  paymentMethod,
		TotalAmount:    domain.NewMoney(total),
		DiscountAmount: domain.NewMoney(discount),
		FinalAmount:    domain.NewMoney(final),
	}
	if r.InvoiceNumber == "" {
		r.InvoiceNumber = strconv.FormatInt(order.ID, 10)
	}

	if len(order.Items) > 0 {
		r.Items = make([]domain.ReceiptItem, 0, len(order.Items))
		for _, item := range order.Items {
			r.Items = append(r.Items, domain.ReceiptItem{
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				TotalPrice:  domain.NewMoney(item.TotalPrice),
			})
		}
		return r
	}
	r.Items = make([]domain.ReceiptItem, 0, len(c.lines))
	for _, line := range c.lines {
		r.Items = append(r.Items, domain.ReceiptItem{
			ProductName: line.Product.Name,
			Quantity:    line.Quantity,
			TotalPrice:  domain.NewMoney(line.Total),
		})
	}
	return r
}
