// Package catalog narrows an in-memory product list for the sales screen.
package catalog

import (
	"strings"

	"pharmapos/m/domain"
)

// Filter returns the products whose name contains query, ignoring case, or
// whose barcode contains it. A blank query returns products unchanged.
func Filter(products []domain.Product, query string) []domain.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return products
	}
	needle := strings.ToLower(query)

	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(p.Barcode, query) {
			matched = append(matched, p)
		}
	}
	return matched
}
