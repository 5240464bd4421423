package parser

import (
	"strings"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

// Catalog is the read-only master SKU table.
type Catalog interface {
	ProductName(itemNumber string) (string, bool)
}

// MapCatalog is a case-insensitive Catalog keyed by item number.
type MapCatalog map[string]string

func NewCatalog(entries []domain.CatalogEntry) MapCatalog {
	catalog := make(MapCatalog, len(entries))
	for _, entry := range entries {
		key := catalogKey(entry.ItemNumber)
		name := strings.TrimSpace(entry.ProductName)
		if key == "" || name == "" {
			continue
		}
		catalog[key] = name
	}
	return catalog
}

func (c MapCatalog) ProductName(itemNumber string) (string, bool) {
	name, ok := c[catalogKey(itemNumber)]
	return name, ok
}

// NameCache holds product names discovered earlier in the same import. It is
// passed into each chunk's parse and the updated copy is handed back, so
// chunks must be parsed in file order.
type NameCache map[string]string

func (c NameCache) Clone() NameCache {
	out := make(NameCache, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type nameResolver struct {
	catalog Catalog
	cache   NameCache
}

// resolve picks a product name: master table, then a name seen earlier in
// this batch, then the description printed on the row, then a synthesized
// name. Anything but the synthesized name is remembered for later rows.
func (r *nameResolver) resolve(itemNumber string, descriptions ...string) string {
	key := catalogKey(itemNumber)

	if r.catalog != nil {
		if name, ok := r.catalog.ProductName(key); ok {
			r.cache[key] = name
			return name
		}
	}
	if name, ok := r.cache[key]; ok && name != "" {
		return name
	}
	for _, desc := range descriptions {
		desc = strings.TrimSpace(desc)
		if isPlaceholderName(desc) {
			continue
		}
		r.cache[key] = desc
		return desc
	}
	return "Product " + itemNumber
}

func isPlaceholderName(desc string) bool {
	if desc == "" || strings.Trim(desc, "_") == "" {
		return true
	}
	return strings.EqualFold(desc, "Description") || strings.EqualFold(desc, "Unknown")
}

func catalogKey(itemNumber string) string {
	return strings.ToUpper(strings.TrimSpace(itemNumber))
}
