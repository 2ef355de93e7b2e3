package grocery

import (
	"slices"
	"strings"

	"github.com/dukerupert/smartgrocery/internal/model"
)

// SortKey selects the field the displayed list is ordered by.
type SortKey string

const (
	SortNone       SortKey = "none"
	SortName       SortKey = "name"
	SortCategory   SortKey = "category"
	SortExpiration SortKey = "expiration"
)

// SortKeys lists the choices in display order.
var SortKeys = []SortKey{SortNone, SortName, SortCategory, SortExpiration}

// Label is the human-readable name shown in sort menus.
func (k SortKey) Label() string {
	switch k {
	case SortName:
		return "Name"
	case SortCategory:
		return "Category"
	case SortExpiration:
		return "Expiration Date"
	default:
		return "None"
	}
}

// ParseSortKey accepts either the key or its label, case-insensitively.
// Unknown values map to SortNone.
func ParseSortKey(s string) SortKey {
	s = strings.TrimSpace(s)
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Label()) {
			return k
		}
	}
	return SortNone
}

// Filter returns the items whose category equals category, ignoring case.
// An empty category or CategoryAll keeps every item.
func Filter(items []model.GroceryItem, category string) []model.GroceryItem {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return slices.Clone(items)
	}
	var out []model.GroceryItem
	for _, item := range items {
		if strings.EqualFold(item.Category, category) {
			out = append(out, item)
		}
	}
	return out
}

// Sort returns a copy of items ordered by key. Equal keys keep their
// incoming order.
func Sort(items []model.GroceryItem, key SortKey) []model.GroceryItem {
	out := slices.Clone(items)
	var field func(model.GroceryItem) string
	switch key {
	case SortName:
		field = func(i model.GroceryItem) string { return strings.ToLower(i.Name) }
	case SortCategory:
		field = func(i model.GroceryItem) string { return strings.ToLower(i.Category) }
	case SortExpiration:
		field = func(i model.GroceryItem) string { return i.ExpirationDate }
	default:
		return out
	}
	slices.SortStableFunc(out, func(a, b model.GroceryItem) int {
		return strings.Compare(field(a), field(b))
	})
	return out
}
