// Package backend talks to a remote pharmacy REST backend that owns the
// catalog, the client registry and order persistence.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmapos/m/domain"
)

// APIError is a non-2xx answer of the backend. Detail carries the
// backend's own message when it sent one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend responded with status %d", e.StatusCode)
}

// Client is the HTTP client of the remote backend. It serves as product
// source, client source and Order API of the sale flow.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ActiveProducts lists the active catalog.
func (c *Client) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	var products []remoteProduct
	if err := c.do(ctx, http.MethodGet, "/products/", nil, &products); err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.active() {
			out = append(out, p.domain())
		}
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int64) (domain.Product, error) {
	var p remoteProduct
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &p); err != nil {
		return domain.Product{}, errors.Wrapf(err, "fetch product %d", id)
	}
	return p.domain(), nil
}

// ProductBatches lists the batches of a product that still hold stock.
func (c *Client) ProductBatches(ctx context.Context, productID int64) ([]domain.Batch, error) {
	var batches []domain.Batch
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/batches", productID), nil, &batches); err != nil {
		return nil, errors.Wrapf(err, "fetch batches of product %d", productID)
	}
	out := make([]domain.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Quantity > 0 {
			b.ProductID = productID
			out = append(out, b)
		}
	}
	return out, nil
}

// ActiveClients lists the registered clients. The backend keeps them in
// its user registry.
func (c *Client) ActiveClients(ctx context.Context) ([]domain.Client, error) {
	var users []remoteClient
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &users); err != nil {
		return nil, errors.Wrap(err, "fetch clients")
	}
	out := make([]domain.Client, 0, len(users))
	for _, u := range users {
		if u.active() {
			out = append(out, u.domain())
		}
	}
	return out, nil
}

func (c *Client) Client(ctx context.Context, id int64) (domain.Client, error) {
	var u remoteClient
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &u); err != nil {
		return domain.Client{}, errors.Wrapf(err, "fetch client %d", id)
	}
	return u.domain(), nil
}

// SubmitOrder posts a sale. A rejection is returned as *APIError so its
// detail reaches the operator unchanged.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	payload := orderCreate{
		UserID:        req.ClientID,
		SellerID:      req.SellerID,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]orderCreateItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		payload.Items = append(payload.Items, orderCreateItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: json.Number(item.UnitPrice.StringFixed(2)),
			BatchID:   item.BatchID,
		})
	}

	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders/", payload, &order); err != nil {
		return domain.Order{}, err
	}
	c.logger.Debug("order accepted by backend", zap.Int64("order_id", order.ID), zap.String("invoice", order.InvoiceNumber))
	return order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// readDetail extracts the "detail" field of an error body. Validation
// errors carry a list there; it is passed through as raw JSON.
func readDetail(r io.Reader) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}

type orderCreate struct {
	UserID        *int64            `json:"user_id"`
	SellerID      *int64            `json:"seller_id,omitempty"`
	Items         []orderCreateItem `json:"items"`
	PaymentMethod string            `json:"payment_method"`
}

type orderCreateItem struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
	BatchID   *int64      `json:"batch_id"`
}

// remoteProduct tolerates backends that omit is_active.
type remoteProduct struct {
	ID                   int64              `json:"id"`
	Name                 string             `json:"name"`
	Barcode              string             `json:"barcode"`
	Price                decimal.Decimal    `json:"price"`
	StockQuantity        int                `json:"stock_quantity"`
	AnvisaLabel          domain.AnvisaLabel `json:"anvisa_label"`
	RequiresPrescription bool               `json:"requires_prescription"`
	MaxQuantityPerSale   *int               `json:"max_quantity_per_sale"`
	IsActive             *bool              `json:"is_active"`
}

func (p remoteProduct) active() bool { return p.IsActive == nil || *p.IsActive }

func (p remoteProduct) domain() domain.Product {
	return domain.Product{
		ID:                   p.ID,
		Name:                 p.Name,
		Barcode:              p.Barcode,
		Price:                p.Price,
		StockQuantity:        p.StockQuantity,
		AnvisaLabel:          p.AnvisaLabel,
		RequiresPrescription: p.RequiresPrescription,
		MaxQuantityPerSale:   p.MaxQuantityPerSale,
		IsActive:             p.active(),
	}
}

type remoteClient struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	CPF        string            `json:"cpf"`
	Phone      string            `json:"phone"`
	Email      *string           `json:"email"`
	Address    *string           `json:"address"`
	BirthDate  *string           `json:"birth_date"`
	ClientType domain.ClientType `json:"client_type"`
	IsActive   *bool             `json:"is_active"`
}

func (u remoteClient) active() bool {
	return (u.IsActive == nil || *u.IsActive) && u.Name != domain.AnonymizedName
}

func (u remoteClient) domain() domain.Client {
	clientType := u.ClientType
	if clientType == "" {
		clientType = domain.ClientRegular
	}
	return domain.Client{
		ID:         u.ID,
		Name:       u.Name,
		CPF:        u.CPF,
		Phone:      u.Phone,
		Email:      u.Email,
		Address:    u.Address,
		BirthDate:  u.BirthDate,
		ClientType: clientType,
		IsActive:   u.active(),
	}
}
