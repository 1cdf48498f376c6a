// Package main compiles to an AWS Lambda handler binary that, when invoked by an SQS queue,
// downloads the published contracts sheet for every ReloadRequest message in the event
// payload. The sheet is fetched from the URL given by the message, or from the URL named by
// the CONTRACTS_SOURCE_URL environment variable when the message does not provide one, and
// is streamed to the S3 bucket named by CONTRACTS_SOURCE_DATA_BUCKET_NAME.
// The resulting S3 object is keyed as "sources/YYYY/mm/dd/contracts/download.csv", where
// the "YYYY/mm/dd" path components represent the date the reload was requested.
package main

import (
	"context"
	"fmt"
	goLog "log"
	"net/http"
	"time"

	ddlambda "github.com/DataDog/datadog-lambda-go"
	goenv "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/usdigitalresponse/contracts-ingest/internal/awsHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/ddHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	awstrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/aws/aws-sdk-go-v2/aws"
	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
)

type Environment struct {
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	DestinationBucket  string        `env:"CONTRACTS_SOURCE_DATA_BUCKET_NAME,required=true"`
	SourceURL          string        `env:"CONTRACTS_SOURCE_URL"`
	MaxDownloadBackoff time.Duration `env:"MAX_DOWNLOAD_BACKOFF,default=0s"`
	UsePathStyleS3Opt  bool          `env:"S3_USE_PATH_STYLE,default=false"`
	Extras             goenv.EnvSet
}

var (
	env        Environment
	logger     log.Logger
	sendMetric = ddHelpers.NewMetricSender("DownloadContractsSheet", "source:contracts")
)

func main() {
	es, err := goenv.UnmarshalFromEnviron(&env)
	if err != nil {
		goLog.Fatalf("error configuring environment variables: %v", err)
	}
	env.Extras = es
	log.ConfigureLogger(&logger, env.LogLevel)

	log.Info(logger, "Starting DownloadContractsSheet", "destinationBucket", env.DestinationBucket)
	lambda.Start(ddlambda.WrapFunction(func(ctx context.Context, sqsEvent events.SQSEvent) error {
		cfg, err := awsHelpers.GetConfig(ctx)
		if err != nil {
			return fmt.Errorf("could not create AWS SDK config: %w", err)
		}
		awstrace.AppendMiddleware(&cfg)
		log.Debug(logger, "Starting Lambda")
		uploader := s3manager.NewUploader(awsHelpers.NewS3Client(cfg, env.UsePathStyleS3Opt))
		return handleSQSEvent(ctx, sqsEvent, uploader, httptrace.WrapClient(http.DefaultClient))
	}, nil))
}
