package grocery

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/smartgrocery/internal/model"
)

// User-visible lookup outcomes.
const (
	MsgProductNotFound  = "Product not found."
	MsgNoProducts       = "No products found."
	MsgNoMatchingResult = "No matching products found."
)

var ErrEmptyQuery = errors.New("enter a product name or barcode")

// SearchResult is what the home screen renders: a single barcode hit, a list
// of name matches, or a message explaining why there is neither.
type SearchResult struct {
	Product  *model.ProductResponse `json:"product,omitempty"`
	Products []model.Product        `json:"products,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

func (r SearchResult) Found() bool {
	return r.Message == ""
}

// IsBarcode reports whether input consists only of ASCII digits.
func IsBarcode(input string) bool {
	if input == "" {
		return false
	}
	for _, c := range input {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Search treats all-digit input as a barcode and anything else as a product
// name. Name results are narrowed to products whose name contains the input.
func (s *Service) Search(ctx context.Context, input string) (SearchResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return SearchResult{}, ErrEmptyQuery
	}
	if IsBarcode(input) {
		return barcodeResult(s.FetchProduct(ctx, input)), nil
	}
	return nameResult(input, s.SearchProductByName(ctx, input)), nil
}

// SearchAsync is Search with the lookup on a background goroutine. onResult
// is called exactly once, synchronously for empty input.
func (s *Service) SearchAsync(ctx context.Context, input string, onResult func(SearchResult, error)) {
	input = strings.TrimSpace(input)
	if input == "" {
		onResult(SearchResult{}, ErrEmptyQuery)
		return
	}
	if IsBarcode(input) {
		s.FetchProductAsync(ctx, input, func(resp *model.ProductResponse) {
			onResult(barcodeResult(resp), nil)
		})
		return
	}
	s.SearchProductByNameAsync(ctx, input, func(resp *model.SearchResponse) {
		onResult(nameResult(input, resp), nil)
	})
}

func barcodeResult(resp *model.ProductResponse) SearchResult {
	if !resp.Found() {
		return SearchResult{Message: MsgProductNotFound}
	}
	return SearchResult{Product: resp}
}

func nameResult(input string, resp *model.SearchResponse) SearchResult {
	if resp == nil || len(resp.Products) == 0 {
		return SearchResult{Message: MsgNoProducts}
	}

	needle := strings.ToLower(input)
	var matches []model.Product
	for _, p := range resp.Products {
		if p.ProductName != nil && strings.Contains(strings.ToLower(*p.ProductName), needle) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return SearchResult{Message: MsgNoMatchingResult}
	}
	return SearchResult{Products: matches}
}
