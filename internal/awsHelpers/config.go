package awsHelpers

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// localstackEndpoint returns the endpoint URL of a LocalStack edge service when
// $LOCALSTACK_HOSTNAME is configured in the current environment.
// $EDGE_PORT overrides port 4566 only when $LOCALSTACK_HOSTNAME is also set.
func localstackEndpoint() (string, bool) {
	lsHostname, isSet := os.LookupEnv("LOCALSTACK_HOSTNAME")
	if !isSet {
		return "", false
	}
	lsPort := "4566"
	if edgePort, isSet := os.LookupEnv("EDGE_PORT"); isSet {
		lsPort = edgePort
	}
	return fmt.Sprintf("http://%s:%s", lsHostname, lsPort), true
}

// GetConfig returns an AWS SDK v2 Config with a custom resolver that sends SDK requests
// to LocalStack when $LOCALSTACK_HOSTNAME is configured, and otherwise falls back to the
// SDK's default endpoint resolution behavior.
func GetConfig(ctx context.Context) (aws.Config, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if url, ok := localstackEndpoint(); ok {
				return aws.Endpoint{URL: url}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
	return config.LoadDefaultConfig(ctx, config.WithEndpointResolverWithOptions(resolver))
}

// NewS3Client builds an S3 client from cfg, optionally using path-style addressing
// (required by LocalStack and gofakes3).
func NewS3Client(cfg aws.Config, usePathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
}

// GetSQSClient returns an SQS client whose endpoint also honors the LocalStack override,
// which the shared config resolver does not reach for SQS.
func GetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create AWS SDK config: %w", err)
	}

	var sqsResolver sqs.EndpointResolverFunc = func(region string, options sqs.EndpointResolverOptions) (aws.Endpoint, error) {
		return cfg.EndpointResolverWithOptions.ResolveEndpoint("sqs", cfg.Region)
	}
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if _, ok := localstackEndpoint(); ok {
			o.EndpointResolver = sqsResolver
		}
	}), nil
}
