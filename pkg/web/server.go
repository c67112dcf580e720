package web

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/config"
)

// NewRouter returns a new HTTP router.
func NewRouter(ctx context.Context) http.Handler {
	cfg := config.FromContext(ctx)
	logger := log.FromContext(ctx).WithPrefix("http")
	router := mux.NewRouter().StrictSlash(true)

	HealthController(ctx, router)
	RepoController(ctx, router)

	router.PathPrefix("/").HandlerFunc(renderNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(renderMethodNotAllowed)

	// Context handler
	// Adds context to the request
	h := NewLoggingMiddleware(router, logger)
	h = NewContextHandler(ctx)(h)
	h = handlers.CompressHandler(h)
	if cfg.CORS.Enabled {
		opts := []handlers.CORSOption{
			handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
			handlers.AllowedHeaders(cfg.CORS.AllowedHeaders),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
			handlers.MaxAge(cfg.CORS.MaxAge),
		}
		if cfg.CORS.AllowCredentials {
			opts = append(opts, handlers.AllowCredentials())
		}
		h = handlers.CORS(opts...)(h)
	}
	h = handlers.RecoveryHandler()(h)

	return h
}

// HealthController registers the health check routes for the web server.
func HealthController(_ context.Context, r *mux.Router) {
	r.HandleFunc("/livez", getLiveness)
	r.HandleFunc("/readyz", getReadiness)
}

func getLiveness(w http.ResponseWriter, _ *http.Request) {
	renderStatus(http.StatusOK)(w, nil)
}

func getReadiness(w http.ResponseWriter, r *http.Request) {
	// Ready when the repository root is still reachable.
	be := backendFrom(r)
	if be == nil {
		renderStatus(http.StatusServiceUnavailable)(w, nil)
		return
	}
	if _, err := be.Repositories(r.Context()); err != nil {
		renderStatus(http.StatusServiceUnavailable)(w, nil)
		return
	}
	renderStatus(http.StatusOK)(w, nil)
}
