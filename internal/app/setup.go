// Package app contains the application setup for the storefront.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/buyflow/internal/cart"
	"github.com/abgdnv/buyflow/internal/catalog"
	"github.com/abgdnv/buyflow/internal/checkout"
	"github.com/abgdnv/buyflow/internal/config"
	"github.com/abgdnv/buyflow/internal/kv"
	"github.com/abgdnv/buyflow/internal/query"
	"github.com/abgdnv/buyflow/internal/transport/rest"
	"github.com/abgdnv/buyflow/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Catalog  catalog.Client
	Cart     *cart.Store
	Session  *query.Session
	Checkout *checkout.Service
	Logger   *slog.Logger
}

// SetupDependencies wires the storefront core over the given storage.
func SetupDependencies(cfg *config.Config, storage kv.Store, logger *slog.Logger) *Dependencies {
	catalogClient := catalog.NewHTTPClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, cfg.Catalog.Resilience, logger)
	cartStore := cart.NewStore(storage, logger)

	return &Dependencies{
		Catalog:  catalogClient,
		Cart:     cartStore,
		Session:  query.NewSession(catalogClient, cfg.Catalog.PageSize, logger),
		Checkout: checkout.NewService(cartStore, logger),
		Logger:   logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the storefront.
// Used by tests to exercise the full handler chain without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Session, deps.Cart, deps.Checkout, deps.Catalog, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storefront.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
