// Package cart owns the shopper's cart contents and their persisted state.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/buyflow/internal/catalog"
	"github.com/abgdnv/buyflow/internal/kv"
)

// StorageKey is the key the serialized cart is persisted under.
const StorageKey = "buyflow:cart"

// ErrPersist indicates a cart mutation was applied in memory but could not
// be written to storage. The mutation stays visible; the caller should warn
// the shopper that the cart may not survive a restart.
var ErrPersist = errors.New("cart persist failed")

// Line is one product's entry in the cart. Product fields are a snapshot
// taken when the product was first added; later catalog price changes do not
// affect existing lines. Amount is always >= 1.
type Line struct {
	catalog.Product
	Amount int `json:"amount"`
}

// Store is the sole authority over cart contents and the derived total.
// Lines keep insertion order and are unique by product ID. Every mutation
// persists the full serialized cart before returning.
type Store struct {
	mu      sync.Mutex
	storage kv.Store
	lines   []Line
	logger  *slog.Logger
}

// NewStore creates an empty cart backed by the given storage.
func NewStore(storage kv.Store, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger.With("component", "cart"),
	}
}

// Load initializes the cart from storage. Missing or malformed data yields
// an empty cart; Load never fails the caller.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil

	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("failed to read persisted cart, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logger.Warn("persisted cart is malformed, starting empty", "error", err)
		return
	}
	// Drop lines that violate the amount invariant rather than rejecting the
	// whole cart.
	for _, line := range lines {
		if line.Amount < 1 {
			s.logger.Warn("dropping persisted line with invalid amount", "product_id", line.ID, "amount", line.Amount)
			continue
		}
		s.lines = append(s.lines, line)
	}
}

// Add puts one unit of product into the cart. An existing line for the same
// product ID has its amount incremented; otherwise a new line with amount 1
// is appended, snapshotting the product fields.
// Returns an ErrPersist-wrapped error if the write to storage failed.
func (s *Store) Add(ctx context.Context, product catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Amount++
	} else {
		s.lines = append(s.lines, Line{Product: product, Amount: 1})
	}
	return s.persist(ctx)
}

// Remove deletes the line with the given product ID. Removing an absent ID
// is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return s.persist(ctx)
}

// UpdateQuantity sets the amount of the line with the given product ID to
// amount. A non-positive amount behaves exactly as Remove. Updating an
// absent ID is a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id, amount int) error {
	if amount <= 0 {
		return s.Remove(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.lines[i].Amount = amount
	return s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	return s.persist(ctx)
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Total returns the sum of price*amount over all lines.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, line := range s.lines {
		total += line.Price * float64(line.Amount)
	}
	return total
}

// indexOf returns the position of the line with the given product ID, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id int) int {
	for i, line := range s.lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// persist serializes the full cart to storage. The in-memory mutation is
// never rolled back on failure. Callers must hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("%w: encode cart: %v", ErrPersist, err)
	}
	if err := s.storage.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
