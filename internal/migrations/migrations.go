package migrations

import (
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the POS backend.
func Run(db *sqlx.DB) {
	if err := Apply(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

// Apply creates the schema, choosing column types by driver.
func Apply(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" || db.DriverName() == "postgres" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Money columns are TEXT on SQLite so decimal strings round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS products (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            barcode TEXT NOT NULL UNIQUE,
            price TEXT NOT NULL,
            stock_quantity INTEGER NOT NULL DEFAULT 0,
            anvisa_label TEXT NOT NULL DEFAULT 'over-the-counter',
            requires_prescription INTEGER NOT NULL DEFAULT 0,
            max_quantity_per_sale INTEGER,
            is_active INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS batches (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id INTEGER NOT NULL,
            batch_number TEXT NOT NULL,
            expiration_date TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
	`CREATE TABLE IF NOT EXISTS clients (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            cpf TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            email TEXT,
            address TEXT,
            birth_date TEXT,
            client_type TEXT NOT NULL DEFAULT 'regular',
            is_active INTEGER NOT NULL DEFAULT 1,
            modification_history TEXT NOT NULL DEFAULT '[]',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            invoice_number TEXT NOT NULL UNIQUE,
            client_id INTEGER,
            seller_id INTEGER,
            payment_method TEXT NOT NULL,
            prescription_required INTEGER NOT NULL DEFAULT 0,
            total_amount TEXT NOT NULL,
            discount_amount TEXT NOT NULL,
            total_value TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(client_id) REFERENCES clients(id),
            FOREIGN KEY(seller_id) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS order_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL,
            product_id INTEGER NOT NULL,
            batch_id INTEGER,
            quantity INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            discount TEXT NOT NULL,
            total_price TEXT NOT NULL,
            FOREIGN KEY(order_id) REFERENCES orders(id),
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
	`CREATE TABLE IF NOT EXISTS supplier_orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            product_id INTEGER NOT NULL,
            supplier_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_cost TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            batch_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            received_at DATETIME,
            FOREIGN KEY(product_id) REFERENCES products(id)
        );`,
}

var postgresSchema = pgTypes(sqliteSchema)

func pgTypes(stmts []string) []string {
	r := strings.NewReplacer(
		"INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY",
		"DATETIME", "TIMESTAMP",
		"requires_prescription INTEGER NOT NULL DEFAULT 0", "requires_prescription BOOLEAN NOT NULL DEFAULT FALSE",
		"prescription_required INTEGER NOT NULL DEFAULT 0", "prescription_required BOOLEAN NOT NULL DEFAULT FALSE",
		"is_active INTEGER NOT NULL DEFAULT 1", "is_active BOOLEAN NOT NULL DEFAULT TRUE",
		"price TEXT NOT NULL", "price NUMERIC(12,2) NOT NULL",
		"amount TEXT NOT NULL", "amount NUMERIC(12,2) NOT NULL",
		"total_value TEXT NOT NULL", "total_value NUMERIC(12,2) NOT NULL",
		"discount TEXT NOT NULL", "discount NUMERIC(12,2) NOT NULL",
		"unit_cost TEXT NOT NULL", "unit_cost NUMERIC(12,2) NOT NULL",
	)
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = r.Replace(s)
	}
	return out
}
