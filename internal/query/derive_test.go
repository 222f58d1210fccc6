package query

import (
	"testing"

	"github.com/abgdnv/buyflow/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Filter(t *testing.T) {
	items := []catalog.Product{
		{ID: 1, Title: "Red Lipstick", Category: "beauty"},
		{ID: 2, Title: "Laptop Sleeve", Category: "laptops"},
		{ID: 3, Title: "Red Nail Polish", Category: "beauty"},
	}

	testCases := []struct {
		name     string
		category string
		term     string
		wantIDs  []int
	}{
		{name: "no filters returns everything", wantIDs: []int{1, 2, 3}},
		{name: "category only", category: "beauty", wantIDs: []int{1, 3}},
		{name: "term only, case-insensitive", term: "RED", wantIDs: []int{1, 3}},
		{name: "term matches substring", term: "sleeve", wantIDs: []int{2}},
		{name: "category and term combine", category: "beauty", term: "nail", wantIDs: []int{3}},
		{name: "no match yields empty, not nil error", category: "beauty", term: "laptop", wantIDs: []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			filtered := Filter(items, tc.category, tc.term)

			// then
			ids := make([]int, 0, len(filtered))
			for _, item := range filtered {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func Test_Featured(t *testing.T) {
	items := []catalog.Product{
		{ID: 1, Rating: 4.9, DiscountPercentage: 20},
		{ID: 2, Rating: 4.4, DiscountPercentage: 50}, // rating too low
		{ID: 3, Rating: 4.5, DiscountPercentage: 11},
		{ID: 4, Rating: 5, DiscountPercentage: 10}, // discount not above threshold
		{ID: 5, Rating: 4.6, DiscountPercentage: 30},
		{ID: 6, Rating: 4.8, DiscountPercentage: 40}, // beyond the cap
	}

	// when
	featured := Featured(items)

	// then: capped at 3, original order preserved, all satisfy the predicate
	require.Len(t, featured, 3)
	assert.Equal(t, 1, featured[0].ID)
	assert.Equal(t, 3, featured[1].ID)
	assert.Equal(t, 5, featured[2].ID)
	for _, item := range featured {
		assert.GreaterOrEqual(t, item.Rating, 4.5)
		assert.Greater(t, item.DiscountPercentage, 10.0)
	}
}

func Test_Deals(t *testing.T) {
	items := []catalog.Product{
		{ID: 1, DiscountPercentage: 16},
		{ID: 2, DiscountPercentage: 15}, // not above threshold
		{ID: 3, DiscountPercentage: 40},
		{ID: 4, DiscountPercentage: 25},
		{ID: 5, DiscountPercentage: 25}, // tie with 4, must stay after it
		{ID: 6, DiscountPercentage: 18},
		{ID: 7, DiscountPercentage: 90}, // squeezes 1 out of the cap
	}

	// when
	deals := Deals(items)

	// then: at most 4, descending discount, stable ties
	require.Len(t, deals, 4)
	ids := []int{deals[0].ID, deals[1].ID, deals[2].ID, deals[3].ID}
	assert.Equal(t, []int{7, 3, 4, 5}, ids)
	for i := 1; i < len(deals); i++ {
		assert.GreaterOrEqual(t, deals[i-1].DiscountPercentage, deals[i].DiscountPercentage)
	}
	for _, item := range deals {
		assert.Greater(t, item.DiscountPercentage, 15.0)
	}
}

func Test_ActiveCategories(t *testing.T) {
	categories := []catalog.Category{
		{Slug: "beauty", Name: "Beauty"},
		{Slug: "laptops", Name: "Laptops"},
		{Slug: "groceries", Name: "Groceries"},
	}
	items := []catalog.Product{
		{ID: 1, Category: "beauty"},
		{ID: 2, Category: "beauty"},
		{ID: 3, Category: "laptops"},
	}

	// when
	active := ActiveCategories(categories, items)

	// then: only categories present on the page, in category-list order
	require.Len(t, active, 2)
	assert.Equal(t, "beauty", active[0].Slug)
	assert.Equal(t, "laptops", active[1].Slug)
}

func Test_TotalPages(t *testing.T) {
	testCases := []struct {
		name     string
		total    int
		pageSize int
		want     int
	}{
		{name: "exact multiple", total: 40, pageSize: 20, want: 2},
		{name: "remainder adds a page", total: 41, pageSize: 20, want: 3},
		{name: "fewer than one page", total: 5, pageSize: 20, want: 1},
		{name: "empty catalog still has page 1", total: 0, pageSize: 20, want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TotalPages(tc.total, tc.pageSize))
		})
	}
}
