package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

var ErrNoSourceURL = errors.New("no contracts sheet URL in message or environment")

type S3UploaderAPI interface {
	Upload(ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// sourceObjectKey returns the key of the raw sheet downloaded for a reload requested at t.
func sourceObjectKey(t time.Time) string {
	return fmt.Sprintf("sources/%s/contracts/download.csv", t.UTC().Format("2006/01/02"))
}

// handleSQSEvent downloads the sheet once for every message in sqsEvent.
// Messages are handled independently; failures are collected and returned together.
func handleSQSEvent(ctx context.Context, sqsEvent events.SQSEvent, s3Uploader S3UploaderAPI, httpClient dataset.HTTPClientAPI) error {
	errs := &multierror.Error{}
	for i, msg := range sqsEvent.Records {
		logger := log.With(logger, "message_id", msg.MessageId, "record_index", i)
		span, spanCtx := tracer.StartSpanFromContext(ctx, "handle.record")
		err := handleMessage(spanCtx, logger, msg.Body, s3Uploader, httpClient)
		span.Finish(tracer.WithError(err))
		if err != nil {
			sendMetric("sheet.failed", 1)
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func handleMessage(ctx context.Context, logger log.Logger, body string, s3Uploader S3UploaderAPI, httpClient dataset.HTTPClientAPI) error {
	log.Info(logger, "Received message", "message", body)
	var req contracts.ReloadRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return log.Errorf(logger, "error unmarshalling SQS message", err)
	}

	url := req.SourceURL
	if url == "" {
		url = env.SourceURL
	}
	if url == "" {
		return log.Errorf(logger, "error resolving sheet URL", ErrNoSourceURL)
	}
	requestedAt := req.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = time.Now()
	}
	logger = log.With(logger, "url", url, "requested_by", req.RequestedBy)

	src := dataset.HTTPSource{URL: url, Client: httpClient, MaxBackoff: env.MaxDownloadBackoff}
	stream, err := src.Open(ctx)
	if err != nil {
		return log.Errorf(logger, "error downloading file", err)
	}
	defer stream.Close()
	log.Debug(logger, "Downloaded file")

	return writeToS3(ctx, logger, s3Uploader, stream, sourceObjectKey(requestedAt))
}

// writeToS3 streams the downloaded sheet to the destination bucket.
func writeToS3(ctx context.Context, logger log.Logger, s3Uploader S3UploaderAPI, fileStream io.Reader, key string) error {
	log.Info(logger, "Writing to S3", "destinationBucket", env.DestinationBucket, "destinationKey", key)
	_, err := s3Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(env.DestinationBucket),
		Key:                  aws.String(key),
		Body:                 fileStream,
		ContentType:          aws.String("text/csv"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return log.Errorf(logger, "error uploading sheet to S3", err)
	}
	sendMetric("sheet.downloaded", 1)
	return nil
}
