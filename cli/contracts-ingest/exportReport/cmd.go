package exportReport

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/usdigitalresponse/contracts-ingest/cli/types"
	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/export"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

type Cmd struct {
	types.SheetSource
	types.FilterFlags

	Format string `name:"format" enum:"csv,xlsx" default:"xlsx" help:"Export format (csv|xlsx)"`
	Output string `name:"output" short:"o" type:"path" help:"Destination file; defaults to the standard report file name for the format. Use - for stdout."`
	Title  string `name:"title" help:"Report title (xlsx only)"`
}

func (cmd *Cmd) Help() string {
	return fmt.Sprintf(`
Both formats list the same columns for the contracts matching the given filters. The xlsx report
additionally starts with the report title and a description of the active filters, annotates each
expiry date with the remaining days, and includes a summary sheet with the metrics of the whole
sheet. Unless --output is given, the export is written to %q or %q in the current directory.`,
		export.CSVFileName, export.XLSXFileName)
}

func (cmd *Cmd) Run(app *kong.Kong, logger *log.Logger) error {
	criteria, err := cmd.Criteria()
	if err != nil {
		return log.Errorf(*logger, "Invalid filter", err)
	}
	ds, err := cmd.Load(context.Background(), *logger)
	if err != nil {
		return err
	}

	output := cmd.Output
	if output == "" {
		output = export.XLSXFileName
		if cmd.Format == "csv" {
			output = export.CSVFileName
		}
	}
	exportLogger := log.WithSuffix(*logger, "format", cmd.Format, "output", output)

	var w io.Writer = app.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return log.Errorf(exportLogger, "Error creating export file", err)
		}
		defer f.Close()
		w = f
	}

	records := ds.Filter(criteria)
	if err := cmd.write(w, ds, criteria, records); err != nil {
		return log.Errorf(exportLogger, "Error writing export", err)
	}
	log.Info(exportLogger, "Exported contracts", "records", len(records))
	return nil
}

func (cmd *Cmd) write(w io.Writer, ds *dataset.Dataset, criteria contracts.Criteria, records []sheet.Record) error {
	if cmd.Format == "csv" {
		return export.WriteCSV(w, ds.Projection(), records)
	}
	return export.WriteXLSX(w, export.Report{
		Title:       cmd.Title,
		Schema:      ds.Schema(),
		Criteria:    criteria,
		Projection:  ds.Projection(),
		Records:     records,
		Metrics:     ds.Metrics(),
		GeneratedAt: time.Now(),
	})
}
