// Package rest exposes the storefront core over HTTP for the presentation layer.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/buyflow/internal/cart"
	"github.com/abgdnv/buyflow/internal/catalog"
	"github.com/abgdnv/buyflow/internal/checkout"
	"github.com/abgdnv/buyflow/internal/query"
	"github.com/abgdnv/buyflow/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const persistWarning = "cart updated, but could not be persisted; it may not survive a restart"

type Handler struct {
	session  *query.Session
	cart     *cart.Store
	checkout *checkout.Service
	catalog  catalog.Client
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the storefront API handler.
func NewHandler(session *query.Session, cartStore *cart.Store, checkoutSvc *checkout.Service, catalogClient catalog.Client, logger *slog.Logger) *Handler {
	return &Handler{
		session:  session,
		cart:     cartStore,
		checkout: checkoutSvc,
		catalog:  catalogClient,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// AddItemRequest is the body of POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID int `json:"product_id" validate:"required,min=1"`
}

// UpdateQuantityRequest is the body of PUT /api/v1/cart/items/{id}.
// Amount is a pointer so zero and negative values reach the store, where
// they mean removal.
type UpdateQuantityRequest struct {
	Amount *int `json:"amount" validate:"required"`
}

// CartResponse is the cart as shown to the shopper.
type CartResponse struct {
	Items   []cart.Line `json:"items"`
	Total   float64     `json:"total"`
	Warning string      `json:"warning,omitempty"`
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.Listing)
			r.Post("/retry", h.RetryListing)
		})
		r.Get("/products/{id}", h.ProductByID)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{id}", h.UpdateQuantity)
			r.Delete("/items/{id}", h.RemoveItem)
		})

		r.Get("/checkout", h.CheckoutSummary)
		r.Post("/checkout", h.PlaceOrder)
	})

	r.Get("/healthz", h.HealthCheck)
}

// Listing returns the current listing view. Optional query parameters steer
// the session first: "category" and "q" select filters (resetting the page),
// "page" selects a page. Parameters must be present to take effect, so an
// explicitly empty category or q clears that filter.
func (h *Handler) Listing(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	params := r.URL.Query()

	if params.Has("category") {
		if err := h.session.SetCategory(r.Context(), params.Get("category")); err != nil {
			mLogger.WarnContext(r.Context(), "Category change failed to load", "error", err)
		}
	}
	if params.Has("q") {
		if err := h.session.SetSearch(r.Context(), params.Get("q")); err != nil {
			mLogger.WarnContext(r.Context(), "Search change failed to load", "error", err)
		}
	}
	if params.Has("page") {
		page, ok := web.ParseOptionalInt(r, w, mLogger, "page", 1, 1)
		if !ok {
			return
		}
		if err := h.session.SetPage(r.Context(), page); err != nil {
			mLogger.WarnContext(r.Context(), "Page change failed to load", "error", err)
		}
	}

	h.respondView(w, mLogger)
}

// RetryListing re-fetches the current page after a failure.
func (h *Handler) RetryListing(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.session.Retry(r.Context()); err != nil {
		mLogger.WarnContext(r.Context(), "Retry failed", "error", err)
	}
	h.respondView(w, mLogger)
}

// respondView writes the session view; a Failed session maps to 503 so
// clients know a retry makes sense.
func (h *Handler) respondView(w http.ResponseWriter, mLogger *slog.Logger) {
	view := h.session.View()
	status := http.StatusOK
	if view.State == query.StateFailed {
		status = http.StatusServiceUnavailable
	}
	web.RespondJSON(w, mLogger, status, view)
}

// ProductByID retrieves a single product from the catalog.
func (h *Handler) ProductByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	product, err := h.catalog.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Catalog is temporarily unavailable")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, product)
}

// GetCart returns the cart lines and total.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartResponse(nil))
}

// AddItem puts one unit of a catalog product into the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	product, err := h.catalog.FindByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found for cart add", "ID", req.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", req.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product for cart add", "ID", req.ProductID, "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Catalog is temporarily unavailable")
		return
	}

	err = h.cart.Add(r.Context(), *product)
	h.respondCartMutation(w, r, mLogger, err)
}

// UpdateQuantity sets the amount of a cart line; zero or negative removes it.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, req) {
		return
	}

	err := h.cart.UpdateQuantity(r.Context(), id, *req.Amount)
	h.respondCartMutation(w, r, mLogger, err)
}

// RemoveItem deletes a cart line. Removing an absent line succeeds.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	err := h.cart.Remove(r.Context(), id)
	h.respondCartMutation(w, r, mLogger, err)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	err := h.cart.Clear(r.Context())
	h.respondCartMutation(w, r, mLogger, err)
}

// CheckoutSummary returns the order cost breakdown for the current cart.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.checkout.Summary())
}

// PlaceOrder places a stub order and returns its receipt.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	receipt, err := h.checkout.PlaceOrder(r.Context())
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Cart is empty")
			return
		}
		if errors.Is(err, cart.ErrPersist) {
			// The order went through; only the cleared cart may reappear
			// after a restart.
			mLogger.WarnContext(r.Context(), "Cart clear not persisted after checkout", "error", err)
			web.RespondJSON(w, mLogger, http.StatusCreated, receipt)
			return
		}
		mLogger.ErrorContext(r.Context(), "Error placing order", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to place order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed", "order_id", receipt.OrderID)
	web.RespondJSON(w, mLogger, http.StatusCreated, receipt)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// respondCartMutation writes the mutated cart. A persistence failure is
// fail-open: the mutation is visible, the response just carries a warning.
func (h *Handler) respondCartMutation(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	if err != nil && !errors.Is(err, cart.ErrPersist) {
		mLogger.ErrorContext(r.Context(), "Cart mutation failed", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update cart")
		return
	}
	if err != nil {
		mLogger.WarnContext(r.Context(), "Cart mutation not persisted", "error", err)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.cartResponse(err))
}

// cartResponse builds the cart payload, attaching a persistence warning when
// the preceding mutation could not be stored.
func (h *Handler) cartResponse(err error) CartResponse {
	resp := CartResponse{
		Items: h.cart.Lines(),
		Total: h.cart.Total(),
	}
	if resp.Items == nil {
		resp.Items = []cart.Line{}
	}
	if errors.Is(err, cart.ErrPersist) {
		resp.Warning = persistWarning
	}
	return resp
}

// validateStruct validates a request DTO, writing field errors on failure.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, s any) bool {
	err := h.validate.Struct(s)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
		return false
	}
	mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
	return false
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
