package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/usdigitalresponse/contracts-ingest/cli/types"
	"github.com/usdigitalresponse/contracts-ingest/internal/api"
	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

const shutdownTimeout = 10 * time.Second

type Cmd struct {
	types.SheetSource

	Addr           string        `name:"addr" default:":8080" env:"CONTRACTS_API_ADDR" help:"Address to listen on"`
	RequestTimeout time.Duration `name:"request-timeout" default:"30s" help:"Maximum duration of a single request (0 disables)"`
}

func (cmd *Cmd) Help() string {
	return `
The sheet is loaded in the background once the server starts listening. Until the first load
completes, every endpoint other than /state and /reload responds with 503 Service Unavailable.
POST /reload downloads the sheet again from the same source.`
}

func (cmd *Cmd) Run(app *kong.Kong, logger *log.Logger) error {
	src, err := cmd.Source()
	if err != nil {
		return log.Errorf(*logger, "Error selecting contracts sheet source", err)
	}
	ds := dataset.New(contracts.DefaultSchema, *logger)
	handler := &api.Handler{
		Dataset: ds,
		Source:  src,
		Logger:  *logger,
		Timeout: cmd.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.serve(ctx, handler, *logger)
}

func (cmd *Cmd) serve(ctx context.Context, h *api.Handler, logger log.Logger) error {
	srv := &http.Server{
		Addr:              cmd.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Load failures are logged by the dataset and reported through /state.
		_ = h.Dataset.Load(ctx, h.Source)
	}()

	errs := make(chan error, 1)
	go func() {
		log.Info(logger, "Serving contracts API", "addr", cmd.Addr, "source", h.Source)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return log.Errorf(logger, "Error serving contracts API", err)
	case <-ctx.Done():
	}

	log.Info(logger, "Shutting down contracts API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return log.Errorf(logger, "Error shutting down contracts API", err)
	}
	return nil
}
