// Package sale composes an in-progress sale: line items, client pricing,
// regulatory gating and hand-off to the Order API.
package sale

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/pricing"
)

// State of a Composer.
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateSubmitting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// OrderAPI persists a finished sale.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error)
}

// LineItem is one row of the sale. UnitPrice is captured when the line is
// created; Discount and Total are kept at full precision.
type LineItem struct {
	Product   domain.Product
	Batch     *domain.Batch
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// BatchID returns the bound batch id, or 0.
func (l LineItem) BatchID() int64 {
	if l.Batch == nil {
		return 0
	}
	return l.Batch.ID
}

// Available is the stock ceiling for the line.
func (l LineItem) Available() int {
	if l.Batch != nil {
		return l.Batch.Quantity
	}
	return l.Product.StockQuantity
}

func (l LineItem) matches(productID, batchID int64) bool {
	return l.Product.ID == productID && l.BatchID() == batchID
}

// Totals aggregates the sale.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// Composer holds one in-progress sale. It is owned by a single session and
// is not safe for concurrent use.
type Composer struct {
	orders   OrderAPI
	logger   *zap.Logger
	sellerID *int64

	state  State
	client *domain.Client
	lines  []LineItem
}

// NewComposer returns an empty sale that submits through orders.
func NewComposer(orders OrderAPI, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{orders: orders, logger: logger}
}

// SetSeller records the staff member credited with the sale.
func (c *Composer) SetSeller(id int64) {
	c.sellerID = &id
}

func (c *Composer) State() State { return c.state }

func (c *Composer) Client() *domain.Client { return c.client }

// Lines returns a copy of the line items in display order.
func (c *Composer) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// AddLine adds one unit of product, optionally bound to batch. An existing
// line for the same product and batch is incremented instead.
func (c *Composer) AddLine(product domain.Product, batch *domain.Batch) error {
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	var batchID int64
	if batch != nil {
		batchID = batch.ID
	}
	if i := c.find(product.ID, batchID); i >= 0 {
		return c.SetQuantity(product.ID, c.lines[i].Quantity+1, batchID)
	}

	line := LineItem{Product: product, Batch: batch, Quantity: 1, UnitPrice: product.Price}
	if err := c.checkCeilings(line, -1, 1); err != nil {
		return err
	}
	c.lines = append(c.lines, c.price(line))
	c.state = StateBuilding
	return nil
}

// SetQuantity changes the quantity of a line. A quantity of zero or less
// removes it. A change crossing the per-sale limit or the available stock is
// rejected with a *QuantityError and the line keeps its previous quantity.
func (c *Composer) SetQuantity(productID int64, quantity int, batchID int64) error {
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	if quantity <= 0 {
		return c.RemoveLine(productID, batchID)
	}
	i := c.find(productID, batchID)
	if i < 0 {
		return ErrLineNotFound
	}
	if err := c.checkCeilings(c.lines[i], i, quantity); err != nil {
		return err
	}
	line := c.lines[i]
	line.Quantity = quantity
	c.lines[i] = c.price(line)
	return nil
}

// RemoveLine deletes the matching line.
func (c *Composer) RemoveLine(productID int64, batchID int64) error {
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	i := c.find(productID, batchID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	if len(c.lines) == 0 {
		c.state = StateEmpty
	}
	return nil
}

// SetClient selects the client, nil for a walk-in sale, and re-prices every
// line.
func (c *Composer) SetClient(client *domain.Client) error {
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	repriced := make([]LineItem, len(c.lines))
	for i, line := range c.lines {
		repriced[i] = priceFor(line, client)
	}
	c.client = client
	c.lines = repriced
	return nil
}

// RequiresPrescription reports whether any line needs a prescription.
func (c *Composer) RequiresPrescription() bool {
	for _, line := range c.lines {
		if line.Product.RequiresPrescription {
			return true
		}
	}
	return false
}

// Totals sums the lines at full precision.
func (c *Composer) Totals() Totals {
	t := Totals{Subtotal: decimal.Zero, Discount: decimal.Zero}
	for _, line := range c.lines {
		t.Subtotal = t.Subtotal.Add(pricing.Subtotal(line.UnitPrice, line.Quantity))
		t.Discount = t.Discount.Add(line.Discount)
	}
	t.Final = t.Subtotal.Sub(t.Discount)
	return t
}

// Submit validates the sale and hands it to the Order API. Validation
// failures never reach the API. On success the sale is cleared and the
// receipt returned; on API failure the sale is kept for retry and a
// *SubmissionError relays the API's message.
func (c *Composer) Submit(ctx context.Context, paymentMethod string, prescriptionAttached bool) (*domain.Receipt, error) {
	if c.state == StateSubmitting {
		return nil, ErrSubmissionInFlight
	}
	if len(c.lines) == 0 {
		return nil, ErrEmptySale
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		return nil, ErrMissingPaymentMethod
	}
	if !domain.ValidPaymentMethod(paymentMethod) {
		return nil, ErrUnknownPaymentMethod
	}
	if c.RequiresPrescription() && !prescriptionAttached {
		return nil, ErrPrescriptionRequired
	}

	req := c.orderRequest(paymentMethod)
	c.state = StateSubmitting
	order, err := c.orders.SubmitOrder(ctx, req)
	if err != nil {
		c.state = StateBuilding
		c.logger.Warn("sale submission failed", zap.Int("lines", len(c.lines)), zap.Error(err))
		return nil, &SubmissionError{Err: err}
	}

	receipt := c.receipt(order, paymentMethod)
	c.lines = nil
	c.client = nil
	c.state = StateCompleted
	c.logger.Info("sale completed",
		zap.Int64("order_id", order.ID),
		zap.String("invoice_number", receipt.InvoiceNumber),
		zap.String("final_amount", receipt.FinalAmount.StringFixed(2)))
	return receipt, nil
}

// Reset discards the sale without submitting it.
func (c *Composer) Reset() error {
	if c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	c.lines = nil
	c.client = nil
	c.state = StateEmpty
	return nil
}

func (c *Composer) find(productID, batchID int64) int {
	for i, line := range c.lines {
		if line.matches(productID, batchID) {
			return i
		}
	}
	return -1
}

func (c *Composer) price(line LineItem) LineItem {
	return priceFor(line, c.client)
}

func priceFor(line LineItem, client *domain.Client) LineItem {
	priced := pricing.ComputeLine(line.Product, client, line.Quantity, line.UnitPrice)
	line.Discount = priced.Discount
	line.Total = priced.Total
	return line
}

// checkCeilings tests quantity for line, the line at index skip (-1 for a
// new line). The per-sale limit and product stock count every line of the
// product, whatever batch it is bound to.
func (c *Composer) checkCeilings(line LineItem, skip int, quantity int) error {
	others := 0
	for i, l := range c.lines {
		if i != skip && l.Product.ID == line.Product.ID {
			others += l.Quantity
		}
	}
	if limit, ok := line.Product.SaleLimit(); ok && others+quantity > limit {
		return &QuantityError{Kind: ErrQuantityExceedsLimit, ProductName: line.Product.Name, Limit: limit, Requested: others + quantity}
	}
	if available := line.Available(); quantity > available {
		return &QuantityError{Kind: ErrQuantityExceedsStock, ProductName: line.Product.Name, Limit: available, Requested: quantity}
	}
	if available := line.Product.StockQuantity - others; quantity > available {
		if available < 0 {
			available = 0
		}
		return &QuantityError{Kind: ErrQuantityExceedsStock, ProductName: line.Product.Name, Limit: available, Requested: quantity}
	}
	return nil
}
