package ddHelpers

import (
	"fmt"

	ddlambda "github.com/DataDog/datadog-lambda-go"
)

const ServiceNamespace = "contracts_ingest"

var ddLambdaMetricSender = ddlambda.Metric

// MetricSender emits a single distribution metric value with optional tags.
type MetricSender func(metric string, value float64, tags ...string)

// NewMetricSender creates a MetricSender that wraps calls to ddlambda.Metric in order to
// provide consistent namespacing and tagging of metrics emitted by a Lambda function.
//
// The following example usages are functionally equivalent:
//
//	NewMetricSender("PublishContractsReport", "source:contracts")("records.parsed", 42, "unit:saude")
//	ddlambda.Metric("contracts_ingest.PublishContractsReport.records.parsed", 42, "source:contracts", "unit:saude")
func NewMetricSender(namespace string, defaultTags ...string) MetricSender {
	return func(metric string, value float64, tags ...string) {
		allTags := make([]string, 0, len(defaultTags)+len(tags))
		allTags = append(allTags, defaultTags...)
		ddLambdaMetricSender(
			fmt.Sprintf("%s.%s.%s", ServiceNamespace, namespace, metric),
			value,
			append(allTags, tags...)...,
		)
	}
}
