package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

// ErrResponse is the body of every failed request.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	e.RequestID = middleware.GetReqID(r.Context())
	render.Status(r, e.HTTPStatusCode)
	return nil
}

var errUnavailable = &ErrResponse{
	HTTPStatusCode: http.StatusServiceUnavailable,
	StatusText:     "Contracts sheet is still loading.",
}

func errBadRequest(err error) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// renderError maps err to an error response.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, StatusText: "Internal error.", ErrorText: err.Error()}
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		resp.HTTPStatusCode, resp.StatusText = http.StatusNotFound, "Contract not found."
	case errors.Is(err, dataset.ErrUnknownField),
		errors.Is(err, contracts.ErrInvalidStatusFilter),
		errors.Is(err, ErrInvalidParam):
		resp.HTTPStatusCode, resp.StatusText = http.StatusBadRequest, "Invalid request."
	case errors.Is(err, ErrNoSource):
		resp.HTTPStatusCode, resp.StatusText = http.StatusConflict, "Reload is not available."
	case errors.Is(err, dataset.ErrLoadFailed):
		resp.HTTPStatusCode, resp.StatusText = http.StatusBadGateway, "Failed to load contracts sheet."
	default:
		log.Error(h.Logger, "Unhandled request error", err, "path", r.URL.Path)
	}
	render.Render(w, r, resp)
}
