package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/usdigitalresponse/contracts-ingest/cli/contracts-ingest/exportReport"
	"github.com/usdigitalresponse/contracts-ingest/cli/contracts-ingest/list"
	"github.com/usdigitalresponse/contracts-ingest/cli/contracts-ingest/reload"
	"github.com/usdigitalresponse/contracts-ingest/cli/contracts-ingest/serve"
	"github.com/usdigitalresponse/contracts-ingest/cli/contracts-ingest/summary"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
)

type Globals struct {
	Log struct {
		Level string `enum:"debug,info,warn,error" help:"Log level (debug|info|warn|error)" default:"info"`
		JSON  bool   `help:"Outputs JSON-formatted logs"`
	} `embed:"" prefix:"log-"`
}

func (g Globals) AfterApply(app *kong.Kong, logger *log.Logger) error {
	format := log.FormatLogfmt
	if g.Log.JSON {
		format = log.FormatJSON
	}
	*logger = log.New(app.Stderr, format, g.Log.Level)
	return nil
}

type CLI struct {
	Globals

	Summary            summary.Cmd                  `cmd:"summary" help:"Prints the metrics of the contracts sheet."`
	List               list.Cmd                     `cmd:"list" help:"Lists contracts matching the given filters."`
	Export             exportReport.Cmd             `cmd:"export" help:"Exports contracts matching the given filters to CSV or XLSX."`
	Serve              serve.Cmd                    `cmd:"serve" help:"Serves the contracts sheet as a JSON API."`
	Reload             reload.Cmd                   `cmd:"reload" help:"Requests a new download of the contracts sheet by the ingest pipeline."`
	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Installs shell completions."`
}

func main() {
	cli := CLI{
		Globals: Globals{},
	}

	var logger log.Logger
	parser := kong.Must(&cli,
		kong.Name("contracts-ingest"),
		kong.Description("CLI utility for the contracts-ingest service."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(&logger),
	)
	kongplete.Complete(parser,
		kongplete.WithPredictor("csv", complete.PredictFiles("*.csv")),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	if err := ctx.Run(&cli.Globals); err != nil {
		ctx.Exit(1)
	}
}
