package summary

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/usdigitalresponse/contracts-ingest/cli/types"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

type Cmd struct {
	types.SheetSource

	Top types.TopN `name:"top" default:"5" help:"Number of organizational units to rank (0 lists all)"`
}

func (cmd *Cmd) Run(app *kong.Kong, logger *log.Logger) error {
	ds, err := cmd.Load(context.Background(), *logger)
	if err != nil {
		return err
	}
	return writeSummary(app.Stdout, ds.Metrics(), int(cmd.Top))
}

func writeSummary(w io.Writer, m contracts.Metrics, top int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total de contratos\t%d\n", m.Total)
	fmt.Fprintf(tw, "Vigentes\t%d\n", m.Active)
	fmt.Fprintf(tw, "Vencidos\t%d\n", m.Expired)
	fmt.Fprintf(tw, "A vencer (%d dias)\t%d\n", contracts.ExpiringSoonDays, m.ExpiringSoon)

	fmt.Fprintf(tw, "\n%s\tQUANTIDADE\n", contracts.LabelStatus)
	for _, g := range m.ByStatus {
		fmt.Fprintf(tw, "%s\t%d\n", g.Label, g.Count)
	}
	fmt.Fprintf(tw, "\n%s\tQUANTIDADE\n", contracts.LabelUnit)
	for _, g := range m.TopUnits(top) {
		fmt.Fprintf(tw, "%s\t%d\n", g.Label, g.Count)
	}
	return tw.Flush()
}
