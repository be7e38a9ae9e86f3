// Package api exposes the bridge over HTTP: it decodes inbound REST
// requests, hands them to the resource translators, and renders the
// outward envelopes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snowbridge/internal/bridge"
	"snowbridge/internal/domain"
	"snowbridge/internal/executor"
	"snowbridge/internal/middleware"
	"snowbridge/internal/resources"
)

// Handler translates HTTP traffic into bridge requests.
type Handler struct {
	exec   executor.Executor
	logger *slog.Logger
}

func NewHandler(exec executor.Executor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{exec: exec, logger: logger}
}

// Routes mounts the catch-all resource endpoint. Routing below /api/v2
// is positional, so a single handler owns the whole subtree.
func (h *Handler) Routes(r chi.Router) {
	r.HandleFunc("/api/v2/*", h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := resources.Dispatch(r.Context(), req, h.exec)
	if err != nil {
		status, msg, _ := statusFor(err)
		h.logger.InfoContext(r.Context(), "request failed",
			"method", req.Method,
			"path", req.Path,
			"action", req.Action,
			"status", status,
			"error", msg,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if encodeErr := json.NewEncoder(w).Encode(result); encodeErr != nil {
		h.logger.ErrorContext(r.Context(), "encode response", "error", encodeErr)
	}
}

// decode builds the normalized request: action split off the path, first
// value of each query parameter, and the JSON body when one was sent.
func (h *Handler) decode(r *http.Request) (*bridge.Request, error) {
	path, action := bridge.SplitAction(r.URL.Path)

	query := make(map[string]string, len(r.URL.Query()))
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	req := &bridge.Request{
		Method: r.Method,
		Path:   path,
		Action: action,
		Query:  query,
	}

	if r.Body == nil {
		return req, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, domain.ErrBadRequest("read request body: %v", err)
	}
	if len(data) == 0 {
		return req, nil
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, domain.ErrBadRequest("request body must be a JSON object")
		}
		return nil, domain.ErrBadRequest("malformed JSON body: %v", err)
	}
	req.Body = body
	return req, nil
}
