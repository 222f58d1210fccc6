// Package query turns fetched catalog pages plus filter state into what the
// storefront displays: filtered listings, promotional subsets and pagination.
package query

import (
	"sort"
	"strings"

	"github.com/abgdnv/buyflow/internal/catalog"
)

// Promotional selection thresholds.
const (
	featuredMinRating   = 4.5
	featuredMinDiscount = 10
	dealsMinDiscount    = 15
	maxFeatured         = 3
	maxDeals            = 4
)

// Filter returns the items matching the selected category and search term.
// An empty category matches everything; an empty term matches everything;
// the term is a case-insensitive substring match on the title. Filtering is
// evaluated over the given (current-page) items only.
func Filter(items []catalog.Product, category, term string) []catalog.Product {
	term = strings.ToLower(term)
	filtered := make([]catalog.Product, 0, len(items))
	for _, item := range items {
		if category != "" && item.Category != category {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(item.Title), term) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

// Featured returns up to 3 highly rated, discounted items
// (rating >= 4.5 and discount > 10), preserving the original order.
func Featured(items []catalog.Product) []catalog.Product {
	featured := make([]catalog.Product, 0, maxFeatured)
	for _, item := range items {
		if item.Rating >= featuredMinRating && item.DiscountPercentage > featuredMinDiscount {
			featured = append(featured, item)
			if len(featured) == maxFeatured {
				break
			}
		}
	}
	return featured
}

// Deals returns up to 4 items with discount > 15, sorted by descending
// discount. Ties keep their original relative order.
func Deals(items []catalog.Product) []catalog.Product {
	deals := make([]catalog.Product, 0, len(items))
	for _, item := range items {
		if item.DiscountPercentage > dealsMinDiscount {
			deals = append(deals, item)
		}
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].DiscountPercentage > deals[j].DiscountPercentage
	})
	if len(deals) > maxDeals {
		deals = deals[:maxDeals]
	}
	return deals
}

// ActiveCategories returns the categories for which at least one of the
// given items matches the slug.
func ActiveCategories(categories []catalog.Category, items []catalog.Product) []catalog.Category {
	active := make([]catalog.Category, 0, len(categories))
	for _, category := range categories {
		for _, item := range items {
			if item.Category == category.Slug {
				active = append(active, category)
				break
			}
		}
	}
	return active
}

// TotalPages returns ceil(total/pageSize), at least 1 so page indices stay
// well defined for an empty catalog.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
