package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmapos/m/domain"
)

var products = []domain.Product{
	{ID: 1, Name: "Dipirona Sódica 500mg", Barcode: "7891058001155"},
	{ID: 2, Name: "Amoxicilina 500mg", Barcode: "7896004703398"},
	{ID: 3, Name: "Clonazepam 2mg", Barcode: "7896422506526"},
	{ID: 4, Name: "Paracetamol 750mg", Barcode: "7891058017392"},
}

func ids(ps []domain.Product) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected []int64
	}{
		{name: "empty query keeps order", query: "", expected: []int64{1, 2, 3, 4}},
		{name: "blank query", query: "   ", expected: []int64{1, 2, 3, 4}},
		{name: "name case insensitive", query: "AMOXI", expected: []int64{2}},
		{name: "shared name fragment", query: "500mg", expected: []int64{1, 2}},
		{name: "partial barcode", query: "7891058", expected: []int64{1, 4}},
		{name: "exact barcode", query: "7896422506526", expected: []int64{3}},
		{name: "no match", query: "ibuprofeno", expected: []int64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ids(Filter(products, tc.query)))
		})
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	before := ids(products)
	_ = Filter(products, "mg")
	assert.Equal(t, before, ids(products))
}
