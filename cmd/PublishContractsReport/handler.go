package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebTypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/usdigitalresponse/contracts-ingest/internal/awsHelpers"
	"github.com/usdigitalresponse/contracts-ingest/internal/dataset"
	"github.com/usdigitalresponse/contracts-ingest/internal/export"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

const (
	sourcePrefix = "sources/"
	reportPrefix = "reports/"

	metricsObjectName = "metrics.json"
	csvObjectName     = "contracts.csv"
	xlsxObjectName    = "contracts.xlsx"

	eventSource     = "org.usdigitalresponse.contracts-ingest"
	eventDetailType = "ContractMetricsSnapshot"
)

var ErrUnexpectedSourceKey = errors.New("source object key is not under " + sourcePrefix)

type EventBridgePutEventsAPI interface {
	PutEvents(context.Context, *eventbridge.PutEventsInput, ...func(*eventbridge.Options)) (
		*eventbridge.PutEventsOutput, error)
}

// reportDir returns the directory that receives the report built from sourceKey, e.g.
// "sources/2024/05/01/contracts/download.csv" yields "reports/2024/05/01/contracts".
func reportDir(sourceKey string) (string, error) {
	if !strings.HasPrefix(sourceKey, sourcePrefix) {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedSourceKey, sourceKey)
	}
	return reportPrefix + path.Dir(strings.TrimPrefix(sourceKey, sourcePrefix)), nil
}

func reportCriteria() (contracts.Criteria, error) {
	status, err := contracts.ParseStatusFilter(env.ReportStatus)
	if err != nil {
		return contracts.Criteria{}, err
	}
	return contracts.Criteria{Status: status, Unit: env.ReportUnit}, nil
}

// handleS3EventWithConfig handles events representing S3 bucket notifications of type "ObjectCreated:*"
func handleS3EventWithConfig(cfg aws.Config, ctx context.Context, s3Event events.S3Event) error {
	s3svc := awsHelpers.NewS3Client(cfg, env.UsePathStyleS3Opt)
	var pub EventBridgePutEventsAPI
	if env.EventBusName != "" {
		pub = eventbridge.NewFromConfig(cfg)
	}
	return handleS3Event(ctx, s3svc, pub, s3Event)
}

// handleS3Event builds one report per record of s3Event. pub may be nil, in which case
// no events are published.
func handleS3Event(ctx context.Context, svc S3ReadWriteObjectAPI, pub EventBridgePutEventsAPI, s3Event events.S3Event) error {
	criteria, err := reportCriteria()
	if err != nil {
		return log.Errorf(logger, "Invalid report filter configuration", err)
	}

	errs := &multierror.Error{}
	for i, record := range s3Event.Records {
		recordSpan, recordCtx := tracer.StartSpanFromContext(ctx, "handle.record")
		logger := log.With(logger, "event_name", record.EventName, "record_index", i,
			"source_bucket", record.S3.Bucket.Name, "source_object_key", record.S3.Object.Key)

		err := handleRecord(recordCtx, logger, svc, pub, record, criteria)
		if err != nil {
			sendMetric("report.failed", 1)
			errs = multierror.Append(errs, err)
		}
		recordSpan.Finish(tracer.WithError(err))
	}

	if err := errs.ErrorOrNil(); err != nil {
		log.Warn(logger, "Failures occurred during invocation; check logs for details",
			"count_total", errs.Len())
		return err
	}
	return nil
}

func handleRecord(ctx context.Context, logger log.Logger, svc S3ReadWriteObjectAPI, pub EventBridgePutEventsAPI, record events.S3EventRecord, criteria contracts.Criteria) error {
	dir, err := reportDir(record.S3.Object.Key)
	if err != nil {
		return log.Errorf(logger, "Error determining report location", err)
	}
	metricsKey := path.Join(dir, metricsObjectName)
	logger = log.With(logger, "destination_bucket", env.DestinationBucket, "report_dir", dir)

	lastModified, err := GetS3LastModified(ctx, svc, env.DestinationBucket, metricsKey)
	if err != nil {
		return log.Errorf(logger, "Error checking for existing report", err)
	}
	if lastModified != nil && lastModified.After(record.EventTime) {
		log.Info(logger, "Skipping report because it is newer than the source sheet",
			"report_last_modified", lastModified, "source_event_time", record.EventTime)
		sendMetric("report.skipped", 1)
		return nil
	}

	ds := dataset.New(contracts.DefaultSchema, logger)
	if err := ds.Load(ctx, s3Source{svc, record.S3.Bucket.Name, record.S3.Object.Key}); err != nil {
		return err
	}
	records := ds.Filter(criteria)
	metrics := ds.Metrics()
	sendMetric("records.parsed", float64(metrics.Total))
	sendMetric("records.matched", float64(len(records)))
	log.Info(logger, "Parsed contracts sheet", "records", metrics.Total, "matched", len(records),
		"criteria", criteria.String())

	generatedAt := time.Now()
	topUnits := metrics.TopUnits(contracts.TopUnitsInReports)
	metricsJSON, err := json.Marshal(struct {
		contracts.Metrics
		TopUnits []contracts.GroupCount `json:"top_units"`
	}{metrics, topUnits})
	if err != nil {
		return log.Errorf(logger, "Error marshaling metrics to JSON", err)
	}
	var csvBuf, xlsxBuf bytes.Buffer
	projection := ds.Projection()
	if err := export.WriteCSV(&csvBuf, projection, records); err != nil {
		return log.Errorf(logger, "Error writing CSV report", err)
	}
	if err := export.WriteXLSX(&xlsxBuf, export.Report{
		Title:       env.ReportTitle,
		Schema:      ds.Schema(),
		Criteria:    criteria,
		Projection:  projection,
		Records:     records,
		Metrics:     metrics,
		GeneratedAt: generatedAt,
	}); err != nil {
		return log.Errorf(logger, "Error writing XLSX report", err)
	}

	// metrics.json is written last; its presence marks a complete report.
	uploads := multierror.Group{}
	for _, obj := range []struct {
		name, contentType string
		body              []byte
	}{
		{csvObjectName, export.CSVContentType, csvBuf.Bytes()},
		{xlsxObjectName, export.XLSXContentType, xlsxBuf.Bytes()},
	} {
		obj := obj
		uploads.Go(func() error {
			key := path.Join(dir, obj.name)
			if err := UploadS3Object(ctx, svc, env.DestinationBucket, key, obj.contentType, bytes.NewReader(obj.body)); err != nil {
				return log.Errorf(logger, "Error uploading report object", err, "key", key)
			}
			return nil
		})
	}
	if err := uploads.Wait().ErrorOrNil(); err != nil {
		return err
	}
	if err := UploadS3Object(ctx, svc, env.DestinationBucket, metricsKey, "application/json", bytes.NewReader(metricsJSON)); err != nil {
		return log.Errorf(logger, "Error uploading report object", err, "key", metricsKey)
	}
	sendMetric("report.published", 1)
	log.Info(logger, "Published contracts report")

	if pub == nil {
		return nil
	}
	return publishSnapshot(ctx, logger, pub, contracts.MetricsSnapshotEvent{
		SourceKey:   record.S3.Object.Key,
		ReportKey:   metricsKey,
		GeneratedAt: generatedAt,
		Criteria:    criteria,
		Matched:     len(records),
		Metrics:     metrics,
		TopUnits:    topUnits,
	})
}

func publishSnapshot(ctx context.Context, logger log.Logger, pub EventBridgePutEventsAPI, snapshot contracts.MetricsSnapshotEvent) error {
	eventJSON, err := json.Marshal(snapshot)
	if err != nil {
		return log.Errorf(logger, "Error marshaling metrics snapshot event", err)
	}

	eventInput := ebTypes.PutEventsRequestEntry{
		Source:       aws.String(eventSource),
		DetailType:   aws.String(eventDetailType),
		Detail:       aws.String(string(eventJSON)),
		Time:         aws.Time(snapshot.GeneratedAt),
		EventBusName: aws.String(env.EventBusName),
	}
	log.Debug(logger, "Publishing to EventBridge",
		"event_bus_name", eventInput.EventBusName, "event_source", eventInput.Source,
		"event_detail_type", eventInput.DetailType, "event_detail_bytes", len(eventJSON))
	if _, err := pub.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebTypes.PutEventsRequestEntry{eventInput},
	}); err != nil {
		return log.Errorf(logger, "error publishing to EventBridge", err)
	}

	sendMetric("event.published", 1)
	log.Info(logger, "Published ContractMetricsSnapshot")
	return nil
}
