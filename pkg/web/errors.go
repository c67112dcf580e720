package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// jsonError is the body of every non-2xx JSON response.
type jsonError struct {
	Error string `json:"error"`
}

// renderJSON writes v as the JSON response body.
func renderJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v) // nolint: errcheck
}

// renderError maps a domain error onto its HTTP status and writes the JSON
// error body. Errors outside the taxonomy are internal: they get logged and
// a generic message so internals do not leak.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch {
	case errors.Is(err, proto.ErrRepoNotFound), errors.Is(err, gitobj.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, gitobj.ErrAmbiguous), errors.Is(err, proto.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, proto.ErrUnavailable):
		code = http.StatusNotImplemented
	default:
		logger := log.FromContext(r.Context())
		logger.Error("internal error", "err", err)
		renderJSON(w, http.StatusInternalServerError, jsonError{Error: "internal server error"})
		return
	}
	renderJSON(w, code, jsonError{Error: err.Error()})
}

func renderStatus(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		io.WriteString(w, fmt.Sprintf("%d %s", code, http.StatusText(code))) //nolint:errcheck,gosec
	}
}

func renderNotFound(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusNotFound, jsonError{Error: "not found"})
}

func renderMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusMethodNotAllowed, jsonError{Error: "method not allowed"})
}
