package migrations

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestApplyIsIdempotent(t *testing.T) {
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, Apply(db))
	require.NoError(t, Apply(db))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"batches", "clients", "order_items", "orders", "products", "supplier_orders", "users"}, tables)
}

func TestPostgresSchemaTypes(t *testing.T) {
	for _, stmt := range postgresSchema {
		assert.NotContains(t, stmt, "AUTOINCREMENT")
		assert.NotContains(t, stmt, "DATETIME")
	}
	assert.Contains(t, postgresSchema[1], "price NUMERIC(12,2) NOT NULL")
	assert.Contains(t, postgresSchema[1], "requires_prescription BOOLEAN NOT NULL DEFAULT FALSE")
	assert.Contains(t, postgresSchema[4], "discount_amount NUMERIC(12,2) NOT NULL")
	assert.Contains(t, postgresSchema[5], "unit_price NUMERIC(12,2) NOT NULL")
	assert.Contains(t, postgresSchema[5], "discount NUMERIC(12,2) NOT NULL")
}
