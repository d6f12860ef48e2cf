package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/backend"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/session"
	"pharmapos/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Catalog is where the sales screen reads products from: the local store
// or the remote backend.
type Catalog interface {
	ActiveProducts(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (domain.Product, error)
	ProductBatches(ctx context.Context, productID int64) ([]domain.Batch, error)
}

// ClientDirectory is where the sales screen reads clients from.
type ClientDirectory interface {
	ActiveClients(ctx context.Context) ([]domain.Client, error)
	Client(ctx context.Context, id int64) (domain.Client, error)
}

// Deps are the collaborators of the HTTP API. Catalog and Clients default
// to Store.
type Deps struct {
	Store           *store.Store
	Catalog         Catalog
	Clients         ClientDirectory
	Sessions        *session.Registry
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
	Secret          string
	AllowedOrigins  []string
	ExpiryAlertDays int
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	catalog    Catalog
	clients    ClientDirectory
	sessions   *session.Registry
	metrics    *metrics.Metrics
	logger     *zap.Logger
	secret     string
	origins    []string
	expiryDays int
}

// New constructs a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		store:      d.Store,
		catalog:    d.Catalog,
		clients:    d.Clients,
		sessions:   d.Sessions,
		metrics:    d.Metrics,
		logger:     d.Logger,
		secret:     d.Secret,
		origins:    d.AllowedOrigins,
		expiryDays: d.ExpiryAlertDays,
	}
	if h.catalog == nil {
		h.catalog = d.Store
	}
	if h.clients == nil {
		h.clients = d.Store
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if len(h.origins) == 0 {
		h.origins = []string{"*"}
	}
	if h.expiryDays <= 0 {
		h.expiryDays = 30
	}
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Post("/staff", h.createStaff)
		pr.Get("/payment-methods", h.paymentMethods)

		pr.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Post("/{id}/stock", h.adjustStock)
			r.Get("/{id}/batches", h.productBatches)
		})
		pr.Get("/batches/expiring", h.expiringBatches)

		pr.Route("/clients", func(r chi.Router) {
			r.Get("/", h.listClients)
			r.Post("/", h.createClient)
			r.Get("/{id}", h.getClient)
			r.Put("/{id}", h.updateClient)
			r.Delete("/{id}", h.deleteClient)
			r.Get("/{id}/history", h.clientHistory)
		})

		pr.Route("/sales/sessions", func(r chi.Router) {
			r.Post("/", h.openSession)
			r.Get("/{sid}", h.getSession)
			r.Delete("/{sid}", h.closeSession)
			r.Post("/{sid}/lines", h.addLine)
			r.Delete("/{sid}/lines", h.clearLines)
			r.Put("/{sid}/lines/{productID}", h.setQuantity)
			r.Delete("/{sid}/lines/{productID}", h.removeLine)
			r.Put("/{sid}/client", h.setClient)
			r.Post("/{sid}/checkout", h.checkout)
		})

		pr.Route("/supplier-orders", func(r chi.Router) {
			r.Get("/", h.listSupplierOrders)
			r.Post("/", h.createSupplierOrder)
			r.Put("/{id}/receive", h.receiveSupplierOrder)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales/daily", h.dailySales)
			r.Get("/orders", h.recentOrders)
			r.Get("/orders/{id}", h.getOrder)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.DB().PingContext(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	current, ok := r.Context().Value(ctxRole).(string)
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func currentUser(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxUserID).(int64)
	return id
}

// respondStoreError maps repository and backend failures to a status.
// Unexpected errors are logged and reported with fallback.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		respondError(w, http.StatusNotFound, apiErr.Error())
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, apiErr.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// Helpers

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func nullIfEmpty(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
