package types

import (
	"context"
	"errors"
	"time"

	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

var ErrNoSource = errors.New("one of --file or --url is required")

// SheetSource selects where a command reads the contracts sheet from.
// It is embedded in the commands that need a loaded dataset.
type SheetSource struct {
	File       string        `name:"file" short:"f" type:"existingfile" predictor:"csv" help:"Local CSV export of the contracts sheet (takes precedence over --url)"`
	URL        string        `name:"url" env:"CONTRACTS_SOURCE_URL" help:"URL of the published contracts sheet"`
	MaxBackoff time.Duration `name:"max-backoff" default:"0s" help:"How long failed downloads are retried (0 disables retries)"`
}

func (s SheetSource) Source() (dataset.Source, error) {
	switch {
	case s.File != "":
		return dataset.FileSource(s.File), nil
	case s.URL != "":
		return dataset.HTTPSource{URL: s.URL, MaxBackoff: s.MaxBackoff}, nil
	default:
		return nil, ErrNoSource
	}
}

// Load returns a dataset holding the sheet read from the selected source.
// Failures are logged to logger before they are returned.
func (s SheetSource) Load(ctx context.Context, logger log.Logger) (*dataset.Dataset, error) {
	src, err := s.Source()
	if err != nil {
		return nil, log.Errorf(logger, "Error selecting contracts sheet source", err)
	}
	ds := dataset.New(contracts.DefaultSchema, logger)
	if err := ds.Load(ctx, src); err != nil {
		return nil, err
	}
	return ds, nil
}

// StatusFilter is a status selector given on the command line, in any letter case.
type StatusFilter string

func (f StatusFilter) Validate() error {
	_, err := contracts.ParseStatusFilter(string(f))
	return err
}

// FilterFlags are the record filters shared by listing and export commands.
type FilterFlags struct {
	Query  string       `name:"query" short:"q" help:"Only include records with a field containing this text (case-insensitive)"`
	Status StatusFilter `name:"status" default:"TODOS" help:"Status filter (TODOS|ATIVOS|VIGENTE|VENCIDO|RESCINDIDO|A VENCER)"`
	Unit   string       `name:"unit" default:"TODAS" help:"Only include records of this organizational unit"`
}

func (f FilterFlags) Criteria() (contracts.Criteria, error) {
	status, err := contracts.ParseStatusFilter(string(f.Status))
	if err != nil {
		return contracts.Criteria{}, err
	}
	return contracts.Criteria{Query: f.Query, Status: status, Unit: f.Unit}, nil
}
