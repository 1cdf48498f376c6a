// Package dataset holds the live contracts dataset shared by the CLI and the JSON API:
// the parsed sheet, its load state, the derived metrics and interactive edits.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

var (
	ErrLoadFailed   = errors.New("failed to load contracts sheet")
	ErrNotFound     = errors.New("contract not found")
	ErrUnknownField = errors.New("unknown contract field")
)

// CreatedIDPrefix prefixes the ids of records added through Create.
const CreatedIDPrefix = "new-"

type State int

const (
	Unloaded State = iota
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Errored:
		return "error"
	default:
		return "loading"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status describes the outcome of the most recent load.
type Status struct {
	State    State     `json:"state"`
	Source   string    `json:"source,omitempty"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Result is one page of records matching a set of criteria.
type Result struct {
	Records   []sheet.Record
	Total     int
	Page      int
	PageSize  int
	PageCount int
}

// Dataset is safe for concurrent use. Readers always observe a fully parsed sheet:
// a load swaps the records in only after the new document has been parsed.
type Dataset struct {
	schema contracts.Schema
	logger log.Logger
	newID  func() string
	now    func() time.Time

	mu      sync.RWMutex
	status  Status
	headers []sheet.Header
	records []sheet.Record
	metrics contracts.Metrics
}

func New(schema contracts.Schema, logger log.Logger) *Dataset {
	d := &Dataset{
		schema: schema,
		logger: logger,
		newID:  func() string { return CreatedIDPrefix + ulid.Make().String() },
		now:    time.Now,
	}
	d.metrics = schema.Metrics(nil)
	return d
}

// Load fetches and parses the document provided by src.
// On failure the dataset moves to the Errored state but keeps serving the records of the
// previous successful load, if any.
func (d *Dataset) Load(ctx context.Context, src Source) error {
	logger := log.With(d.logger, "source", src)
	sourceName := fmt.Sprint(src)

	text, err := fetchText(ctx, src)
	if err != nil {
		d.mu.Lock()
		d.status.State = Errored
		d.status.Source = sourceName
		d.status.Error = err.Error()
		d.mu.Unlock()
		return log.Errorf(logger, "Error loading contracts sheet", fmt.Errorf("%w: %w", ErrLoadFailed, err))
	}

	parsed := sheet.Parse(text)
	d.replace(parsed, sourceName)
	log.Info(logger, "Loaded contracts sheet", "headers", len(parsed.Headers), "records", len(parsed.Records))
	return nil
}

func fetchText(ctx context.Context, src Source) (string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return readText(rc)
}

// Replace installs s as the current sheet and marks the dataset as loaded.
// The source reported by Status is left unchanged.
func (d *Dataset) Replace(s sheet.Sheet) {
	d.mu.RLock()
	source := d.status.Source
	d.mu.RUnlock()
	d.replace(s, source)
}

// replace swaps in s and records source under a single lock.
func (d *Dataset) replace(s sheet.Sheet, source string) {
	records := append([]sheet.Record{}, s.Records...)
	metrics := d.schema.Metrics(records)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.headers = append([]sheet.Header{}, s.Headers...)
	d.records = records
	d.metrics = metrics
	d.status = Status{
		State:    Loaded,
		Source:   source,
		Records:  len(records),
		LoadedAt: d.now(),
	}
}

func (d *Dataset) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status.State
}

func (d *Dataset) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Dataset) Schema() contracts.Schema {
	return d.schema
}

// Headers returns a copy of the current column headers.
func (d *Dataset) Headers() []sheet.Header {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]sheet.Header{}, d.headers...)
}

// Projection returns the display columns available in the current headers.
func (d *Dataset) Projection() contracts.Projection {
	return contracts.Project(d.Headers())
}

// Records returns a copy of the current record list, in display order.
func (d *Dataset) Records() []sheet.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]sheet.Record{}, d.records...)
}

// Metrics returns the aggregate over every current record.
func (d *Dataset) Metrics() contracts.Metrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.metrics
}

// Units returns the distinct unit values of the current records.
func (d *Dataset) Units() []string {
	return d.schema.Units(d.Records())
}

// Get returns the record identified by id.
func (d *Dataset) Get(id string) (sheet.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexOf(id); i >= 0 {
		return d.records[i], nil
	}
	return sheet.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Filter returns every record matching c, in display order.
func (d *Dataset) Filter(c contracts.Criteria) []sheet.Record {
	return d.schema.Filter(d.Records(), c)
}

// Query returns the page-th page (1-based) of records matching c.
// A non-positive size selects contracts.DefaultPageSize.
func (d *Dataset) Query(c contracts.Criteria, page, size int) Result {
	if size <= 0 {
		size = contracts.DefaultPageSize
	}
	matched := d.Filter(c)
	return Result{
		Records:   contracts.Page(matched, page, size),
		Total:     len(matched),
		Page:      page,
		PageSize:  size,
		PageCount: contracts.PageCount(len(matched), size),
	}
}

// Create adds a record built from fields at the top of the list and returns it.
// Every key of fields must be one of the current headers.
func (d *Dataset) Create(fields map[string]string) (sheet.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := sheet.Keys(d.headers)
	if err := checkFields(keys, fields); err != nil {
		return sheet.Record{}, err
	}

	r := sheet.NewRecord(d.newID(), keys, fields)
	d.records = append([]sheet.Record{r}, d.records...)
	d.changed()
	log.Debug(d.logger, "Created contract", "id", r.ID())
	return r, nil
}

// Update merges fields into the record identified by id and returns the result.
func (d *Dataset) Update(id string, fields map[string]string) (sheet.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(id)
	if i < 0 {
		return sheet.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := checkFields(d.records[i].Keys(), fields); err != nil {
		return sheet.Record{}, err
	}

	d.records[i] = d.records[i].Merge(fields)
	d.changed()
	log.Debug(d.logger, "Updated contract", "id", id, "fields", len(fields))
	return d.records[i], nil
}

// Delete removes the record identified by id.
func (d *Dataset) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	records := make([]sheet.Record, 0, len(d.records)-1)
	records = append(records, d.records[:i]...)
	d.records = append(records, d.records[i+1:]...)
	d.changed()
	log.Debug(d.logger, "Deleted contract", "id", id)
	return nil
}

// changed refreshes values derived from the record list. Callers must hold mu.
func (d *Dataset) changed() {
	d.metrics = d.schema.Metrics(d.records)
	d.status.Records = len(d.records)
}

func (d *Dataset) indexOf(id string) int {
	for i, r := range d.records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func checkFields(keys []string, fields map[string]string) error {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	for k := range fields {
		if !known[k] {
			return fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
	}
	return nil
}
