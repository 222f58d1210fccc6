// Package checkout computes the order summary and hands out receipts.
// No real order submission exists; placing an order only clears the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abgdnv/buyflow/internal/cart"
	"github.com/google/uuid"
)

// Flat shipping fee and discount applied to every order.
const (
	shippingFee = 50.0
	discount    = 0.0
)

// ErrEmptyCart indicates a checkout was attempted with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// Summary is the order cost breakdown shown before checkout.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Receipt confirms a placed (stubbed) order.
type Receipt struct {
	OrderID   string  `json:"order_id"`
	ItemCount int     `json:"item_count"`
	Summary   Summary `json:"summary"`
}

// Service computes summaries over the cart and places stub orders.
type Service struct {
	cart   *cart.Store
	logger *slog.Logger
}

// NewService creates a checkout service over the given cart.
func NewService(cartStore *cart.Store, logger *slog.Logger) *Service {
	return &Service{
		cart:   cartStore,
		logger: logger.With("component", "checkout"),
	}
}

// Summary returns the cost breakdown for the current cart contents.
func (s *Service) Summary() Summary {
	subtotal := s.cart.Total()
	return Summary{
		Subtotal: subtotal,
		Shipping: shippingFee,
		Discount: discount,
		Total:    subtotal + shippingFee - discount,
	}
}

// PlaceOrder issues a receipt for the current cart and clears it.
// Returns ErrEmptyCart when there is nothing to order. A persistence failure
// while clearing is reported but the receipt stands.
func (s *Service) PlaceOrder(ctx context.Context) (*Receipt, error) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	receipt := &Receipt{
		OrderID:   uuid.NewString(),
		ItemCount: len(lines),
		Summary:   s.Summary(),
	}
	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn("failed to persist cart clear after checkout", "order_id", receipt.OrderID, "error", err)
		return receipt, fmt.Errorf("order %s placed, but: %w", receipt.OrderID, err)
	}
	s.logger.Info("order placed", "order_id", receipt.OrderID, "items", receipt.ItemCount, "total", receipt.Summary.Total)
	return receipt, nil
}
