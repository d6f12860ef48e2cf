package sale

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/m/domain"
)

// --- Fake Order API ---

type fakeOrderAPI struct {
	Requests []domain.OrderRequest
	Order    domain.Order
	Err      error
	OnSubmit func()
}

func (f *fakeOrderAPI) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	f.Requests = append(f.Requests, req)
	if f.OnSubmit != nil {
		f.OnSubmit()
	}
	if f.Err != nil {
		return domain.Order{}, f.Err
	}
	return f.Order, nil
}

func intPtr(v int) *int { return &v }

func dipirona() domain.Product {
	return domain.Product{ID: 1, Name: "Dipirona 500mg", Barcode: "7891058001155", Price: decimal.RequireFromString("10.00"), StockQuantity: 100, AnvisaLabel: domain.LabelOverTheCounter}
}

func clonazepam() domain.Product {
	return domain.Product{ID: 2, Name: "Clonazepam 2mg", Barcode: "7896422506526", Price: decimal.RequireFromString("25.90"), StockQuantity: 10, AnvisaLabel: domain.LabelBlack, RequiresPrescription: true, MaxQuantityPerSale: intPtr(2)}
}

func elderly() *domain.Client {
	return &domain.Client{ID: 5, Name: "José", ClientType: domain.ClientElderly}
}

func insurance() *domain.Client {
	return &domain.Client{ID: 6, Name: "Ana", ClientType: domain.ClientInsurance}
}

func fixed(d interface{ StringFixed(int32) string }) string { return d.StringFixed(2) }

func TestAddLine(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	assert.Equal(t, StateEmpty, c.State())

	require.NoError(t, c.AddLine(dipirona(), nil))
	assert.Equal(t, StateBuilding, c.State())
	require.NoError(t, c.AddLine(dipirona(), nil))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "20.00", fixed(lines[0].Total))
}

func TestAddLineSeparatesBatches(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	b1 := &domain.Batch{ID: 11, ProductID: 1, BatchNumber: "L001", ExpirationDate: "2027-01-31", Quantity: 3}
	b2 := &domain.Batch{ID: 12, ProductID: 1, BatchNumber: "L002", ExpirationDate: "2027-06-30", Quantity: 40}

	require.NoError(t, c.AddLine(dipirona(), b1))
	require.NoError(t, c.AddLine(dipirona(), b2))
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.AddLine(dipirona(), b1))

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, int64(11), lines[0].BatchID())
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, int64(12), lines[1].BatchID())
	assert.Equal(t, int64(0), lines[2].BatchID())
}

func TestSetQuantityPricing(t *testing.T) {
	testCases := []struct {
		name             string
		client           *domain.Client
		quantity         int
		expectedDiscount string
		expectedTotal    string
	}{
		{name: "walk-in bulk", client: nil, quantity: 6, expectedDiscount: "3.00", expectedTotal: "57.00"},
		{name: "insurance", client: insurance(), quantity: 2, expectedDiscount: "3.00", expectedTotal: "17.00"},
		{name: "elderly bulk", client: elderly(), quantity: 6, expectedDiscount: "6.00", expectedTotal: "54.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewComposer(&fakeOrderAPI{}, nil)
			require.NoError(t, c.SetClient(tc.client))
			require.NoError(t, c.AddLine(dipirona(), nil))
			require.NoError(t, c.SetQuantity(1, tc.quantity, 0))

			line := c.Lines()[0]
			assert.Equal(t, tc.expectedDiscount, fixed(line.Discount))
			assert.Equal(t, tc.expectedTotal, fixed(line.Total))
		})
	}
}

func TestSetQuantityCeilings(t *testing.T) {
	t.Run("per-sale limit", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		require.NoError(t, c.AddLine(clonazepam(), nil))
		require.NoError(t, c.SetQuantity(2, 2, 0))

		err := c.SetQuantity(2, 3, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQuantityExceedsLimit))
		assert.Equal(t, "Maximum 2 units allowed per sale for Clonazepam 2mg", err.Error())
		assert.Equal(t, "QuantityExceedsLimit", Code(err))
		assert.Equal(t, 2, c.Lines()[0].Quantity)
	})

	t.Run("product stock", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		require.NoError(t, c.AddLine(dipirona(), nil))

		err := c.SetQuantity(1, 101, 0)
		var qe *QuantityError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, ErrQuantityExceedsStock, qe.Kind)
		assert.Equal(t, "Only 100 units available for Dipirona 500mg", err.Error())
		assert.Equal(t, 1, c.Lines()[0].Quantity)
	})

	t.Run("batch stock", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		batch := &domain.Batch{ID: 11, ProductID: 1, BatchNumber: "L001", Quantity: 2}
		require.NoError(t, c.AddLine(dipirona(), batch))
		require.NoError(t, c.AddLine(dipirona(), batch))

		err := c.AddLine(dipirona(), batch)
		assert.True(t, errors.Is(err, ErrQuantityExceedsStock))
		assert.Equal(t, 2, c.Lines()[0].Quantity)
	})

	t.Run("out of stock product cannot be added", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		p := dipirona()
		p.StockQuantity = 0

		err := c.AddLine(p, nil)
		assert.True(t, errors.Is(err, ErrQuantityExceedsStock))
		assert.Empty(t, c.Lines())
		assert.Equal(t, StateEmpty, c.State())
	})

	t.Run("zero limit counts as unset", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		p := dipirona()
		p.MaxQuantityPerSale = intPtr(0)
		require.NoError(t, c.AddLine(p, nil))
		assert.NoError(t, c.SetQuantity(1, 8, 0))
	})
}

func TestCeilingsSpanAllLinesOfProduct(t *testing.T) {
	b1 := &domain.Batch{ID: 21, ProductID: 2, BatchNumber: "C77", Quantity: 5}
	b2 := &domain.Batch{ID: 22, ProductID: 2, BatchNumber: "C78", Quantity: 5}

	t.Run("per-sale limit across batches", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		require.NoError(t, c.AddLine(clonazepam(), b1))
		require.NoError(t, c.AddLine(clonazepam(), b2))

		err := c.SetQuantity(2, 2, 21)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQuantityExceedsLimit))
		assert.Equal(t, "Maximum 2 units allowed per sale for Clonazepam 2mg", err.Error())

		err = c.AddLine(clonazepam(), nil)
		assert.True(t, errors.Is(err, ErrQuantityExceedsLimit))

		lines := c.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, 1, lines[0].Quantity)
		assert.Equal(t, 1, lines[1].Quantity)
	})

	t.Run("per-sale limit reached by removing a line first", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		require.NoError(t, c.AddLine(clonazepam(), b1))
		require.NoError(t, c.AddLine(clonazepam(), b2))
		require.NoError(t, c.RemoveLine(2, 22))
		assert.NoError(t, c.SetQuantity(2, 2, 21))
	})

	t.Run("product stock across lines", func(t *testing.T) {
		c := NewComposer(&fakeOrderAPI{}, nil)
		p := dipirona()
		p.StockQuantity = 5
		batch := &domain.Batch{ID: 11, ProductID: 1, BatchNumber: "L001", Quantity: 5}
		require.NoError(t, c.AddLine(p, batch))
		require.NoError(t, c.SetQuantity(1, 3, 11))
		require.NoError(t, c.AddLine(p, nil))

		err := c.SetQuantity(1, 3, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQuantityExceedsStock))
		assert.Equal(t, "Only 2 units available for Dipirona 500mg", err.Error())
		assert.NoError(t, c.SetQuantity(1, 2, 0))
	})
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))

	require.NoError(t, c.SetQuantity(1, 0, 0))
	assert.Empty(t, c.Lines())
	assert.Equal(t, StateEmpty, c.State())
}

func TestSetQuantityUnknownLine(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	assert.Equal(t, ErrLineNotFound, c.SetQuantity(99, 2, 0))
	assert.Equal(t, ErrLineNotFound, c.RemoveLine(99, 0))
}

func TestAddThenRemoveRestoresPriorState(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.SetClient(elderly()))
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.SetQuantity(1, 7, 0))

	beforeLines := c.Lines()
	beforeTotals := c.Totals()

	require.NoError(t, c.AddLine(clonazepam(), nil))
	require.NoError(t, c.RemoveLine(2, 0))

	assert.Equal(t, beforeLines, c.Lines())
	assert.Equal(t, beforeTotals, c.Totals())
	assert.Equal(t, StateBuilding, c.State())
}

func TestSetClientRepricesEveryLine(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.SetQuantity(1, 2, 0))
	require.NoError(t, c.AddLine(clonazepam(), nil))

	require.NoError(t, c.SetClient(insurance()))
	lines := c.Lines()
	assert.Equal(t, "3.00", fixed(lines[0].Discount))
	assert.Equal(t, "3.89", fixed(lines[1].Discount))
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)

	require.NoError(t, c.SetClient(nil))
	for _, line := range c.Lines() {
		assert.True(t, line.Discount.IsZero())
	}
	assert.Nil(t, c.Client())
}

func TestSetClientIdempotent(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.SetQuantity(1, 9, 0))
	require.NoError(t, c.AddLine(clonazepam(), nil))

	require.NoError(t, c.SetClient(elderly()))
	once := c.Lines()
	require.NoError(t, c.SetClient(elderly()))
	assert.Equal(t, once, c.Lines())
}

func TestTotals(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.SetClient(elderly()))
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.SetQuantity(1, 6, 0))
	require.NoError(t, c.AddLine(clonazepam(), nil))

	totals := c.Totals()
	assert.Equal(t, "85.90", fixed(totals.Subtotal))
	assert.Equal(t, "8.59", fixed(totals.Discount))
	assert.Equal(t, "77.31", fixed(totals.Final))
}

func TestRequiresPrescription(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))
	assert.False(t, c.RequiresPrescription())
	require.NoError(t, c.AddLine(clonazepam(), nil))
	assert.True(t, c.RequiresPrescription())
	require.NoError(t, c.RemoveLine(2, 0))
	assert.False(t, c.RequiresPrescription())
}

func TestSubmitValidation(t *testing.T) {
	testCases := []struct {
		name          string
		setup         func(c *Composer)
		paymentMethod string
		prescription  bool
		expectedErr   error
		expectedCode  string
	}{
		{
			name:          "empty sale",
			setup:         func(c *Composer) {},
			paymentMethod: "cash",
			expectedErr:   ErrEmptySale,
			expectedCode:  "EmptySale",
		},
		{
			name:          "missing payment method",
			setup:         func(c *Composer) { _ = c.AddLine(dipirona(), nil) },
			paymentMethod: "  ",
			expectedErr:   ErrMissingPaymentMethod,
			expectedCode:  "MissingPaymentMethod",
		},
		{
			name:          "unknown payment method",
			setup:         func(c *Composer) { _ = c.AddLine(dipirona(), nil) },
			paymentMethod: "bitcoin",
			expectedErr:   ErrUnknownPaymentMethod,
			expectedCode:  "UnknownPaymentMethod",
		},
		{
			name:          "prescription required",
			setup:         func(c *Composer) { _ = c.AddLine(clonazepam(), nil) },
			paymentMethod: "pix",
			prescription:  false,
			expectedErr:   ErrPrescriptionRequired,
			expectedCode:  "PrescriptionRequired",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeOrderAPI{}
			c := NewComposer(api, nil)
			tc.setup(c)
			before := c.Lines()

			receipt, err := c.Submit(context.Background(), tc.paymentMethod, tc.prescription)

			assert.Nil(t, receipt)
			assert.Equal(t, tc.expectedErr, err)
			assert.Equal(t, tc.expectedCode, Code(err))
			assert.Empty(t, api.Requests, "Order API must not be called")
			assert.Equal(t, before, c.Lines())
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	api := &fakeOrderAPI{Order: domain.Order{ID: 42, InvoiceNumber: "INV-20261019-ab12cd34"}}
	c := NewComposer(api, nil)
	c.SetSeller(3)
	batch := &domain.Batch{ID: 21, ProductID: 2, BatchNumber: "C77", Quantity: 5}

	require.NoError(t, c.SetClient(insurance()))
	require.NoError(t, c.AddLine(dipirona(), nil))
	require.NoError(t, c.SetQuantity(1, 2, 0))
	require.NoError(t, c.AddLine(clonazepam(), batch))

	receipt, err := c.Submit(context.Background(), " credit_card ", true)
	require.NoError(t, err)
	assert.Equal(t, "credit_card", receipt.PaymentMethod)

	require.Len(t, api.Requests, 1)
	req := api.Requests[0]
	require.NotNil(t, req.ClientID)
	assert.Equal(t, int64(6), *req.ClientID)
	require.NotNil(t, req.SellerID)
	assert.Equal(t, int64(3), *req.SellerID)
	assert.Equal(t, "credit_card", req.PaymentMethod)
	assert.True(t, req.PrescriptionRequired)
	require.Len(t, req.Items, 2)
	assert.Equal(t, int64(1), req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "10.00", fixed(req.Items[0].UnitPrice))
	assert.Nil(t, req.Items[0].BatchID)
	require.NotNil(t, req.Items[1].BatchID)
	assert.Equal(t, int64(21), *req.Items[1].BatchID)

	assert.Equal(t, "INV-20261019-ab12cd34", receipt.InvoiceNumber)
	assert.Equal(t, int64(42), receipt.OrderID)
	require.Len(t, receipt.Items, 2)
	assert.Equal(t, "Dipirona 500mg", receipt.Items[0].ProductName)
	assert.Equal(t, "17.00", fixed(receipt.Items[0].TotalPrice))
	assert.Equal(t, "45.90", fixed(receipt.TotalAmount))
	assert.Equal(t, "6.89", fixed(receipt.DiscountAmount))
	assert.Equal(t, "39.01", fixed(receipt.FinalAmount))

	assert.Equal(t, StateCompleted, c.State())
	assert.Empty(t, c.Lines())
	assert.Nil(t, c.Client())

	require.NoError(t, c.AddLine(dipirona(), nil))
	assert.Equal(t, StateBuilding, c.State())
}

func TestSubmitPrefersServerAmounts(t *testing.T) {
	api := &fakeOrderAPI{Order: domain.Order{
		ID:             7,
		TotalAmount:    decimal.RequireFromString("10"),
		DiscountAmount: decimal.RequireFromString("0"),
		TotalValue:     decimal.RequireFromString("9.5"),
		Items: []domain.OrderItem{
			{ProductName: "Dipirona 500mg", Quantity: 1, TotalPrice: decimal.RequireFromString("9.5")},
		},
	}}
	c := NewComposer(api, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))

	receipt, err := c.Submit(context.Background(), "cash", false)
	require.NoError(t, err)
	assert.Equal(t, "7", receipt.InvoiceNumber)
	assert.Equal(t, "9.50", fixed(receipt.FinalAmount))
	assert.Equal(t, "9.50", fixed(receipt.Items[0].TotalPrice))
}

func TestSubmitFailureKeepsSale(t *testing.T) {
	api := &fakeOrderAPI{Err: errors.New("Insufficient stock for product 1")}
	c := NewComposer(api, nil)
	require.NoError(t, c.SetClient(elderly()))
	require.NoError(t, c.AddLine(dipirona(), nil))
	before := c.Lines()

	receipt, err := c.Submit(context.Background(), "cash", false)

	assert.Nil(t, receipt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmissionFailed))
	assert.Equal(t, "SubmissionFailed", Code(err))
	assert.Equal(t, "Insufficient stock for product 1", err.Error())
	assert.Equal(t, StateBuilding, c.State())
	assert.Equal(t, before, c.Lines())
	assert.Equal(t, elderly(), c.Client())

	api.Err = nil
	api.Order = domain.Order{ID: 1, InvoiceNumber: "INV-1"}
	_, err = c.Submit(context.Background(), "cash", false)
	assert.NoError(t, err)
	assert.Len(t, api.Requests, 2)
}

func TestMutationsRejectedWhileSubmitting(t *testing.T) {
	api := &fakeOrderAPI{Order: domain.Order{ID: 1, InvoiceNumber: "INV-1"}}
	c := NewComposer(api, nil)
	require.NoError(t, c.AddLine(dipirona(), nil))

	var errs []error
	api.OnSubmit = func() {
		assert.Equal(t, StateSubmitting, c.State())
		errs = append(errs,
			c.AddLine(dipirona(), nil),
			c.SetQuantity(1, 3, 0),
			c.RemoveLine(1, 0),
			c.SetClient(elderly()),
			c.Reset(),
		)
		_, err := c.Submit(context.Background(), "cash", false)
		errs = append(errs, err)
	}

	_, err := c.Submit(context.Background(), "cash", false)
	require.NoError(t, err)
	require.Len(t, errs, 6)
	for _, e := range errs {
		assert.Equal(t, ErrSubmissionInFlight, e)
	}
	assert.Len(t, api.Requests, 1)
}

func TestReset(t *testing.T) {
	c := NewComposer(&fakeOrderAPI{}, nil)
	require.NoError(t, c.SetClient(elderly()))
	require.NoError(t, c.AddLine(dipirona(), nil))

	require.NoError(t, c.Reset())
	assert.Empty(t, c.Lines())
	assert.Nil(t, c.Client())
	assert.Equal(t, StateEmpty, c.State())
}
