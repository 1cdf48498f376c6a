// Package main compiles to an AWS Lambda handler binary that, when invoked by an
// S3:ObjectCreated:* notification for a downloaded contracts sheet, builds the contracts
// report for that sheet. The report is written to the S3 bucket named by the
// CONTRACTS_REPORTS_BUCKET_NAME environment variable under "reports/YYYY/mm/dd/contracts/",
// mirroring the date components of the source object key, and consists of:
//
//   - metrics.json: the metrics of every contract in the sheet
//   - contracts.csv: the projected columns of the contracts matching the report filters
//   - contracts.xlsx: the formatted report of the same contracts, with a summary sheet
//
// A report is only rebuilt when the source sheet is newer than the existing report.
// When EVENT_BUS_NAME is set, a ContractMetricsSnapshot event is published to that
// EventBridge event bus after each report is written.
package main

import (
	"context"
	"fmt"
	goLog "log"

	ddlambda "github.com/DataDog/datadog-lambda-go"
	goenv "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/usdigitalresponse/contracts-ingest/internal/awsHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/ddHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	awstrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/aws/aws-sdk-go-v2/aws"
)

type Environment struct {
	LogLevel          string `env:"LOG_LEVEL,default=INFO"`
	DestinationBucket string `env:"CONTRACTS_REPORTS_BUCKET_NAME,required=true"`
	EventBusName      string `env:"EVENT_BUS_NAME"`
	ReportTitle       string `env:"REPORT_TITLE"`
	ReportStatus      string `env:"REPORT_STATUS_FILTER,default=TODOS"`
	ReportUnit        string `env:"REPORT_UNIT_FILTER,default=TODAS"`
	UsePathStyleS3Opt bool   `env:"S3_USE_PATH_STYLE,default=false"`
	Extras            goenv.EnvSet
}

var (
	env        Environment
	logger     log.Logger
	sendMetric = ddHelpers.NewMetricSender("PublishContractsReport", "source:contracts")
)

func main() {
	es, err := goenv.UnmarshalFromEnviron(&env)
	if err != nil {
		goLog.Fatalf("error configuring environment variables: %v", err)
	}
	env.Extras = es
	log.ConfigureLogger(&logger, env.LogLevel)

	log.Debug(logger, "Starting Lambda")
	lambda.Start(ddlambda.WrapFunction(func(ctx context.Context, s3Event events.S3Event) error {
		cfg, err := awsHelpers.GetConfig(ctx)
		if err != nil {
			return fmt.Errorf("could not create AWS SDK config: %w", err)
		}
		awstrace.AppendMiddleware(&cfg)
		return handleS3EventWithConfig(cfg, ctx, s3Event)
	}, nil))
}
