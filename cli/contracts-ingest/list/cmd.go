package list

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/usdigitalresponse/contracts-ingest/cli/types"
	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/sheet"
)

type Cmd struct {
	types.SheetSource
	types.FilterFlags

	Page     types.PageNumber `name:"page" default:"1" help:"Page of results to print"`
	PageSize types.PageSize   `name:"page-size" default:"8" help:"Number of records per page"`
	All      bool             `name:"all" help:"Print every matching record instead of a single page"`
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

	var res dataset.Result
	if cmd.All {
		matched := ds.Filter(criteria)
		res = dataset.Result{Records: matched, Total: len(matched), Page: 1, PageSize: len(matched), PageCount: 1}
	} else {
		res = ds.Query(criteria, int(cmd.Page), int(cmd.PageSize))
	}
	log.Debug(*logger, "Listing contracts", "criteria", criteria.String(), "matched", res.Total)
	return writeTable(app.Stdout, ds.Schema(), ds.Projection(), criteria, res)
}

func writeTable(w io.Writer, schema contracts.Schema, p contracts.Projection, criteria contracts.Criteria, res dataset.Result) error {
	fmt.Fprintln(w, criteria.String())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\tPRAZO\n", strings.Join(p.Labels(), "\t"))
	for _, r := range res.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID(), strings.Join(p.Row(r), "\t"), badge(schema, r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Página %d de %d (%d contratos)\n", res.Page, res.PageCount, res.Total)
	return err
}

func badge(schema contracts.Schema, r sheet.Record) string {
	return schema.Classify(r).Badge().String()
}
