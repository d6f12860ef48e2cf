// Package seed fills an empty database with the starter catalog and the
// first administrator account.
package seed

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/store"
)

// LoadProducts ingests a catalog CSV with the columns
// name,barcode,price,stock,anvisa_label,max_quantity_per_sale.
// Rows whose barcode is already registered are skipped. It returns the
// number of products inserted.
func LoadProducts(ctx context.Context, st *store.Store, csvPath string, logger *zap.Logger) int {
	file, err := os.Open(csvPath)
	if err != nil {
		logger.Info("product catalog not loaded", zap.String("path", csvPath), zap.Error(err))
		return 0
	}
	defer file.Close()
	return loadProducts(ctx, st, file, logger)
}

func loadProducts(ctx context.Context, st *store.Store, r io.Reader, logger *zap.Logger) int {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		logger.Warn("unable to read product header", zap.Error(err))
		return 0
	}

	rows, skipped := 0, 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read product row", zap.Int("line", line), zap.Error(err))
			continue
		}
		p, err := parseProduct(record)
		if err != nil {
			logger.Warn("skipping product row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if _, err := st.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				skipped++
				continue
			}
			logger.Warn("unable to insert product", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		rows++
	}

	logger.Info("seeded product catalog", zap.Int("inserted", rows), zap.Int("existing", skipped))
	return rows
}

func parseProduct(record []string) (domain.Product, error) {
	if len(record) < 4 {
		return domain.Product{}, errors.Errorf("expected at least 4 columns, got %d", len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	price, err := decimal.NewFromString(record[2])
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "price %q", record[2])
	}
	stock, err := strconv.Atoi(record[3])
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "stock %q", record[3])
	}
	p := domain.Product{
		Name:          record[0],
		Barcode:       record[1],
		Price:         price,
		StockQuantity: stock,
		AnvisaLabel:   domain.LabelOverTheCounter,
	}
	if len(record) > 4 && record[4] != "" {
		p.AnvisaLabel = domain.AnvisaLabel(record[4])
	}
	if len(record) > 5 && record[5] != "" {
		limit, err := strconv.Atoi(record[5])
		if err != nil {
			return domain.Product{}, errors.Wrapf(err, "max_quantity_per_sale %q", record[5])
		}
		p.MaxQuantityPerSale = &limit
	}
	return p, nil
}
