// Package api serves the contracts dataset as a JSON API for the dashboard front end.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	chitrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/go-chi/chi.v5"

	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/export"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

const ServiceName = "contracts-ingest-api"

var (
	ErrNoSource     = errors.New("no sheet source configured")
	ErrInvalidParam = errors.New("invalid query parameter")
)

// Handler serves a single Dataset. Source is used by the reload endpoint and may be nil,
// in which case reloads are rejected.
type Handler struct {
	Dataset *dataset.Dataset
	Source  dataset.Source
	Logger  log.Logger
	// Timeout bounds the handling of each request; zero disables the limit.
	Timeout time.Duration
}

// Routes returns a chi router exposing h.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(chitrace.Middleware(chitrace.WithServiceName(ServiceName)))
	if h.Timeout > 0 {
		r.Use(middleware.Timeout(h.Timeout))
	}

	r.Get("/state", h.getState)
	r.Post("/reload", h.reload)

	r.Group(func(r chi.Router) {
		r.Use(h.requireLoaded)
		r.Get("/headers", h.getHeaders)
		r.Get("/columns", h.getColumns)
		r.Get("/units", h.getUnits)
		r.Get("/metrics", h.getMetrics)

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.listContracts)
			r.Post("/", h.createContract)
			r.Get("/{id}", h.getContract)
			r.Put("/{id}", h.updateContract)
			r.Delete("/{id}", h.deleteContract)
		})

		r.Get("/export/contracts.csv", h.exportCSV)
		r.Get("/export/contracts.xlsx", h.exportXLSX)
	})
	return r
}

// requireLoaded rejects data requests until the first load attempt has finished.
func (h *Handler) requireLoaded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Dataset.State() == dataset.Unloaded {
			render.Render(w, r, errUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.Dataset.Status())
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		h.renderError(w, r, ErrNoSource)
		return
	}
	if err := h.Dataset.Load(r.Context(), h.Source); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.Dataset.Status())
}

func (h *Handler) getHeaders(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.Dataset.Headers())
}

func (h *Handler) getColumns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.Dataset.Projection())
}

func (h *Handler) getUnits(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.Dataset.Units())
}

type metricsResponse struct {
	contracts.Metrics
	TopUnits []contracts.GroupCount `json:"top_units"`
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", contracts.TopUnitsInReports)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	m := h.Dataset.Metrics()
	render.JSON(w, r, metricsResponse{Metrics: m, TopUnits: m.TopUnits(top)})
}

// Row is a record as shown in the record browser.
type Row struct {
	ID        string             `json:"id"`
	Cells     []string           `json:"cells"`
	Category  contracts.Category `json:"category"`
	Indicator string             `json:"indicator"`
	Badge     string             `json:"badge,omitempty"`
}

type listResponse struct {
	Criteria  contracts.Criteria   `json:"criteria"`
	Columns   contracts.Projection `json:"columns"`
	Rows      []Row                `json:"rows"`
	Total     int                  `json:"total"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
	PageCount int                  `json:"page_count"`
}

func (h *Handler) listContracts(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaParams(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	size, err := intParam(r, "page_size", contracts.DefaultPageSize)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	schema := h.Dataset.Schema()
	projection := h.Dataset.Projection()
	res := h.Dataset.Query(criteria, page, size)
	rows := make([]Row, len(res.Records))
	for i, rec := range res.Records {
		c := schema.Classify(rec)
		rows[i] = Row{
			ID:        rec.ID(),
			Cells:     projection.Row(rec),
			Category:  c.Category,
			Indicator: c.Category.Indicator(),
			Badge:     c.Badge().String(),
		}
	}
	render.JSON(w, r, listResponse{
		Criteria:  criteria,
		Columns:   projection,
		Rows:      rows,
		Total:     res.Total,
		Page:      res.Page,
		PageSize:  res.PageSize,
		PageCount: res.PageCount,
	})
}

func (h *Handler) getContract(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Dataset.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// contractRequest is the body of create and update requests.
type contractRequest struct {
	Fields map[string]string `json:"fields"`
}

func (c *contractRequest) Bind(r *http.Request) error {
	if c.Fields == nil {
		return errors.New("fields is required")
	}
	return nil
}

func (h *Handler) createContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, errBadRequest(err))
		return
	}
	rec, err := h.Dataset.Create(req.Fields)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	log.Info(h.Logger, "Created contract", "id", rec.ID())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (h *Handler) updateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, errBadRequest(err))
		return
	}
	rec, err := h.Dataset.Update(chi.URLParam(r, "id"), req.Fields)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	log.Info(h.Logger, "Updated contract", "id", rec.ID())
	render.JSON(w, r, rec)
}

func (h *Handler) deleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Dataset.Delete(id); err != nil {
		h.renderError(w, r, err)
		return
	}
	log.Info(h.Logger, "Deleted contract", "id", id)
	render.NoContent(w, r)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaParams(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	records := h.Dataset.Filter(criteria)
	setAttachment(w, export.CSVFileName, export.CSVContentType)
	if err := export.WriteCSV(w, h.Dataset.Projection(), records); err != nil {
		log.Error(h.Logger, "Error writing CSV export", err)
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaParams(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	report := export.Report{
		Schema:      h.Dataset.Schema(),
		Criteria:    criteria,
		Projection:  h.Dataset.Projection(),
		Records:     h.Dataset.Filter(criteria),
		Metrics:     h.Dataset.Metrics(),
		GeneratedAt: time.Now(),
	}
	setAttachment(w, export.XLSXFileName, export.XLSXContentType)
	if err := export.WriteXLSX(w, report); err != nil {
		log.Error(h.Logger, "Error writing XLSX export", err)
	}
}

func setAttachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// criteriaParams reads the q, status and unit query parameters.
func criteriaParams(r *http.Request) (contracts.Criteria, error) {
	q := r.URL.Query()
	status, err := contracts.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return contracts.Criteria{}, err
	}
	return contracts.Criteria{Query: q.Get("q"), Status: status, Unit: q.Get("unit")}, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, name, v)
	}
	return n, nil
}
