package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/middleware"
)

// Product is one catalog entry. Price is in cents.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    int64   `json:"price"`
	Rating   float64 `json:"rating"`
}

func demoCatalog() []Product {
	return []Product{
		{ID: "p-1001", Name: "Trail Runner Shoes", Category: "footwear", Price: 8999, Rating: 4.6},
		{ID: "p-1002", Name: "Canvas Sneakers", Category: "footwear", Price: 4599, Rating: 4.1},
		{ID: "p-1003", Name: "Merino Hiking Socks", Category: "footwear", Price: 1599, Rating: 4.8},
		{ID: "p-2001", Name: "Insulated Water Bottle", Category: "gear", Price: 2999, Rating: 4.4},
		{ID: "p-2002", Name: "Packable Daypack", Category: "gear", Price: 5499, Rating: 4.3},
		{ID: "p-2003", Name: "Titanium Spork", Category: "gear", Price: 1299, Rating: 4.9},
		{ID: "p-3001", Name: "Rain Shell Jacket", Category: "apparel", Price: 12999, Rating: 4.5},
		{ID: "p-3002", Name: "Thermal Base Layer", Category: "apparel", Price: 3999, Rating: 4.2},
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// handleProducts filters, sorts, and paginates the catalog. Auth is
// optional; an authenticated response notes the viewer in the metadata.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items := make([]Product, 0, len(s.cfg.Catalog))
	category := query.Get("category")
	for _, p := range s.cfg.Catalog {
		if category != "" && p.Category != category {
			continue
		}
		items = append(items, p)
	}

	sortKey := query.Get("sort")
	descending := query.Get("order") == "desc"
	if sortKey != "" {
		if err := sortProducts(items, sortKey, descending); err != nil {
			shopgate.WriteError(w, err)
			return
		}
	}

	page := parsePositive(query.Get("page"), 1)
	limit := parsePositive(query.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	metadata := map[string]any{
		"page":  page,
		"limit": limit,
		"total": total,
	}
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		metadata["viewer"] = sess.Email
	}

	shopgate.WriteJSON(w, http.StatusOK, shopgate.Envelope{
		Success:  true,
		Data:     items[start:end],
		Metadata: metadata,
	})
}

func sortProducts(items []Product, key string, descending bool) error {
	var less func(a, b Product) bool
	switch key {
	case "price":
		less = func(a, b Product) bool { return a.Price < b.Price }
	case "name":
		less = func(a, b Product) bool { return a.Name < b.Name }
	case "rating":
		less = func(a, b Product) bool { return a.Rating < b.Rating }
	default:
		return shopgate.ErrValidation.WithMessage("sort must be one of: price, name, rating")
	}

	sort.SliceStable(items, func(i, j int) bool {
		if descending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
	return nil
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
