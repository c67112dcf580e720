package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/restfulgit/restfulgit/pkg/backend"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "restfulgit",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "The total number of API requests by repository",
}, []string{"repo", "endpoint"})

func backendFrom(r *http.Request) proto.Backend {
	return backend.FromContext(r.Context())
}

// openRepo resolves the {repo} route var to a repository and its object
// store, counting the request against the endpoint label.
func openRepo(r *http.Request, endpoint string) (proto.Repository, gitobj.Store, error) {
	name := mux.Vars(r)["repo"]
	requestCounter.WithLabelValues(name, endpoint).Inc()

	be := backendFrom(r)
	if be == nil {
		return nil, nil, fmt.Errorf("no backend configured")
	}
	repo, err := be.Repository(r.Context(), name)
	if err != nil {
		return nil, nil, err
	}
	store, err := repo.Open()
	if err != nil {
		return nil, nil, err
	}
	return repo, store, nil
}

// queryInt parses an optional integer query parameter. Absent or blank
// values return def; malformed or negative values are invalid.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("query parameter %s=%q: %w", name, raw, proto.ErrInvalidArgument)
	}
	return n, nil
}
