package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/m/domain"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Apply(db))
	return store.New(db, "test_secret")
}

const catalog = `name,barcode,price,stock,anvisa_label,max_quantity_per_sale
Dipirona 500mg,7891058001155,10.00,100,over-the-counter,
Amoxicilina 500mg,7896004703398,32.50,40,red-label,3
Clonazepam 2mg,7896422506526,25.90,10,black-label,2
Broken row,123,not-a-price,1,,
Dipirona duplicada,7891058001155,9.00,5,,
`

func TestLoadProducts(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	inserted := loadProducts(ctx, st, strings.NewReader(catalog), zap.NewNop())
	assert.Equal(t, 3, inserted)

	products, err := st.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Len(t, products, 3)

	byName := map[string]domain.Product{}
	for _, p := range products {
		byName[p.Name] = p
	}
	clonazepam := byName["Clonazepam 2mg"]
	assert.Equal(t, domain.LabelBlack, clonazepam.AnvisaLabel)
	assert.True(t, clonazepam.RequiresPrescription)
	require.NotNil(t, clonazepam.MaxQuantityPerSale)
	assert.Equal(t, 2, *clonazepam.MaxQuantityPerSale)
	assert.Nil(t, byName["Dipirona 500mg"].MaxQuantityPerSale)
	assert.Equal(t, "10", byName["Dipirona 500mg"].Price.String())

	// A second run finds every barcode registered.
	assert.Equal(t, 0, loadProducts(ctx, st, strings.NewReader(catalog), zap.NewNop()))
}

func TestLoadProductsMissingFile(t *testing.T) {
	assert.Equal(t, 0, LoadProducts(context.Background(), newStore(t), "does-not-exist.csv", zap.NewNop()))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, EnsureAdmin(ctx, st, "", "secret", zap.NewNop()))
	_, err := st.UserByEmail(ctx, "admin@farmacia.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, EnsureAdmin(ctx, st, "admin@farmacia.com", "secret", zap.NewNop()))
	u, err := st.UserByEmail(ctx, "admin@farmacia.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.Equal(t, "admin", u.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret")))

	// Existing accounts are left alone.
	require.NoError(t, EnsureAdmin(ctx, st, "admin@farmacia.com", "other", zap.NewNop()))
	again, err := st.UserByEmail(ctx, "admin@farmacia.com")
	require.NoError(t, err)
	assert.Equal(t, u.Password, again.Password)
}
