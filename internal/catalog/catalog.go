// Package catalog defines the read-only product catalog contract and the
// HTTP client that talks to the remote catalog service.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the catalog service could not be reached or
// returned an unusable response. Callers may retry.
var ErrUnavailable = errors.New("catalog unavailable")

// ErrProductNotFound indicates the requested product does not exist at the
// source. It wraps ErrUnavailable so callers that only distinguish
// "catalog problem" keep working.
var ErrProductNotFound = fmt.Errorf("%w: product not found", ErrUnavailable)

// Product is an immutable catalog entry, sourced externally.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
}

// Category is a product category as listed by the catalog service.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Page is one server-side page of products. Total counts products across
// all pages at the source, not just the returned slice.
type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// Client is the interface for the remote catalog service.
// It abstracts the transport, allowing for different implementations (e.g. HTTP, in-memory fake).
type Client interface {
	// List retrieves one page of products.
	// Returns ErrUnavailable on transport, HTTP or decode failure.
	List(ctx context.Context, limit, skip int) (*Page, error)

	// FindByID retrieves a single product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID,
	// ErrUnavailable on any other failure.
	FindByID(ctx context.Context, id int) (*Product, error)

	// Categories retrieves the category list.
	// Returns ErrUnavailable on failure.
	Categories(ctx context.Context) ([]Category, error)
}
