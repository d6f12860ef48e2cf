package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmapos/m/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/", 2*time.Second, zap.NewNop())
}

func TestActiveProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/", r.URL.Path)
		w.Write([]byte(`[
			{"id": 1, "name": "Dipirona 500mg", "barcode": "7891058001155", "price": 10.0, "stock_quantity": 100, "anvisa_label": "over-the-counter"},
			{"id": 2, "name": "Clonazepam 2mg", "barcode": "7896422506526", "price": 25.9, "stock_quantity": 10, "anvisa_label": "black-label", "requires_prescription": true, "max_quantity_per_sale": 2},
			{"id": 4, "name": "Amoxicilina 500mg", "barcode": "7896004703398", "price": 32.5, "stock_quantity": 8, "anvisa_label": "red-label"},
			{"id": 3, "name": "Retired", "barcode": "1", "price": 1, "stock_quantity": 0, "is_active": false}
		]`))
	})

	products, err := c.ActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("10")))
	assert.True(t, products[1].RequiresPrescription)
	require.NotNil(t, products[1].MaxQuantityPerSale)
	assert.Equal(t, 2, *products[1].MaxQuantityPerSale)
	// The backend owns the prescription flag; the label is not re-checked.
	assert.Equal(t, domain.LabelRed, products[2].AnvisaLabel)
	assert.False(t, products[2].RequiresPrescription)
}

func TestProductBatchesSkipsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/7/batches", r.URL.Path)
		w.Write([]byte(`[
			{"id": 11, "batch_number": "L1", "quantity": 3, "expiration_date": "2026-11-05"},
			{"id": 12, "batch_number": "L2", "quantity": 0, "expiration_date": "2026-12-01"}
		]`))
	})

	batches, err := c.ProductBatches(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, int64(11), batches[0].ID)
	assert.Equal(t, int64(7), batches[0].ProductID)
}

func TestActiveClients(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/", r.URL.Path)
		w.Write([]byte(`[
			{"id": 1, "name": "Maria", "cpf": "52998224725", "client_type": "elderly"},
			{"id": 2, "name": "Staff", "cpf": ""},
			{"id": 3, "name": "DELETED_USER", "cpf": "00000000000", "is_active": false}
		]`))
	})

	clients, err := c.ActiveClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, domain.ClientElderly, clients[0].ClientType)
	assert.Equal(t, domain.ClientRegular, clients[1].ClientType)
}

func TestSubmitOrderPayload(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42, "invoice_number": "INV-20261019-ab12cd34", "total_amount": 45.9, "discount_amount": 6.89, "total_value": 39.01}`))
	})

	batch := int64(5)
	order, err := c.SubmitOrder(context.Background(), domain.OrderRequest{
		PaymentMethod: "credit_card",
		Items: []domain.OrderItemRequest{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("25.9"), BatchID: &batch},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, "39.01", order.TotalValue.StringFixed(2))

	assert.Nil(t, got["user_id"])
	assert.Equal(t, "credit_card", got["payment_method"])
	items := got["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, float64(10), first["unit_price"], "unit prices travel as JSON numbers")
	assert.Nil(t, first["batch_id"])
	assert.Equal(t, float64(5), items[1].(map[string]interface{})["batch_id"])
}

func TestErrorDetail(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{name: "string detail", status: http.StatusBadRequest, body: `{"detail": "Insufficient stock for Dipirona"}`, expected: "Insufficient stock for Dipirona"},
		{name: "validation list", status: http.StatusUnprocessableEntity, body: `{"detail": [{"loc": ["body", "items"]}]}`, expected: `[{"loc": ["body", "items"]}]`},
		{name: "no body", status: http.StatusInternalServerError, body: ``, expected: "backend responded with status 500"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := c.SubmitOrder(context.Background(), domain.OrderRequest{PaymentMethod: "cash"})
			require.Error(t, err)
			assert.Equal(t, tc.expected, err.Error())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestNotFoundWrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Product not found"}`))
	})

	_, err := c.Product(context.Background(), 9)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "fetch product 9")
}
