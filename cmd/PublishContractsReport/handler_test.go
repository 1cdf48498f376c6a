package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goenv "github.com/Netflix/go-env"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log"
	"github.com/hashicorp/go-multierror"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/usdigitalresponse/contracts-ingest/internal/export"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

const (
	testSourceBucket = "test-source-bucket"
	testSourceKey    = "sources/2024/05/01/contracts/download.csv"
	testReportDir    = "reports/2024/05/01/contracts"
)

const testSheet = `PREFEITURA MUNICIPAL
Relatório de contratos
gerado em 2024
Nº,ANO,PROCESSO,CONTRATO,SECRETARIA,OBJETO,FORNECEDOR,INÍCIO,VENCIMENTO,DIAS FALTANTES P/ VENCER,VALOR,SITUAÇÃO
1,2024,P-1,C-001,SAUDE,Limpeza,ACME,01/01/2024,01/01/2025,15,1000,VIGENTE
2,2024,P-2,C-002,EDUCACAO,Merenda,Food Co,01/01/2023,01/01/2024,-5,2000,VENCIDO
3,2023,P-3,C-003,SAUDE,Transporte,Bus SA,01/01/2023,01/06/2023,0,3000,RESCINDIDO
`

type mockEventBridgePutEventsAPI struct {
	expectedError error
	params        *eventbridge.PutEventsInput
	callCount     int
	mux           sync.Mutex
}

func (m *mockEventBridgePutEventsAPI) PutEvents(ctx context.Context, p *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.callCount += 1
	m.params = p
	return &eventbridge.PutEventsOutput{}, m.expectedError
}

func setupLambdaEnvForTesting(t *testing.T, extras goenv.EnvSet) {
	t.Helper()

	// Suppress normal lambda log output
	logger = log.NewNopLogger()

	envSet := goenv.EnvSet{
		"CONTRACTS_REPORTS_BUCKET_NAME": "test-reports-bucket",
		"EVENT_BUS_NAME":                "test-event-bus",
		"S3_USE_PATH_STYLE":             "true",
	}
	for k, v := range extras {
		envSet[k] = v
	}
	env = Environment{}
	require.NoError(t, goenv.Unmarshal(envSet, &env))
}

func setupS3ForTesting(t *testing.T) *s3.Client {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())
	t.Cleanup(ts.Close)

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion("us-west-2"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("TEST", "TEST", "TESTING"),
		),
		config.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}),
		config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(_, _ string, _ ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: ts.URL}, nil
			}),
		),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true })
	for _, bucketName := range []string{testSourceBucket, env.DestinationBucket} {
		_, err := client.CreateBucket(context.TODO(), &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
		require.NoError(t, err)
	}
	return client
}

func putSource(t *testing.T, client *s3.Client, key, body string) {
	t.Helper()
	_, err := client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(testSourceBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(body)),
	})
	require.NoError(t, err)
}

func getReportObject(t *testing.T, client *s3.Client, name string) []byte {
	t.Helper()
	resp, err := client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(env.DestinationBucket),
		Key:    aws.String(testReportDir + "/" + name),
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func s3EventFor(key string, eventTime time.Time) events.S3Event {
	return events.S3Event{Records: []events.S3EventRecord{{
		EventName: "ObjectCreated:Put",
		EventTime: eventTime,
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: testSourceBucket},
			Object: events.S3Object{Key: key},
		},
	}}}
}

func TestReportDir(t *testing.T) {
	dir, err := reportDir("sources/2024/05/01/contracts/download.csv")
	require.NoError(t, err)
	assert.Equal(t, "reports/2024/05/01/contracts", dir)

	_, err = reportDir("uploads/download.csv")
	assert.ErrorIs(t, err, ErrUnexpectedSourceKey)
}

func TestLambdaInvocation(t *testing.T) {
	setupLambdaEnvForTesting(t, goenv.EnvSet{"REPORT_STATUS_FILTER": "ativos"})
	client := setupS3ForTesting(t)
	putSource(t, client, testSourceKey, testSheet)
	mockEB := &mockEventBridgePutEventsAPI{}

	err := handleS3Event(context.TODO(), client, mockEB, s3EventFor(testSourceKey, time.Now()))
	require.NoError(t, err)

	t.Run("metrics cover every record", func(t *testing.T) {
		var metrics struct {
			Total    int                    `json:"total"`
			Active   int                    `json:"active"`
			Expired  int                    `json:"expired"`
			TopUnits []contracts.GroupCount `json:"top_units"`
		}
		require.NoError(t, json.Unmarshal(getReportObject(t, client, metricsObjectName), &metrics))
		assert.Equal(t, 3, metrics.Total)
		assert.Equal(t, 1, metrics.Active)
		assert.Equal(t, 1, metrics.Expired)
		assert.Equal(t, []contracts.GroupCount{{Label: "SAUDE", Count: 2}, {Label: "EDUCACAO", Count: 1}}, metrics.TopUnits)
	})

	t.Run("csv lists filtered records", func(t *testing.T) {
		rows, err := csv.NewReader(bytes.NewReader(getReportObject(t, client, csvObjectName))).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"C-001", "SAUDE", "Limpeza", "ACME", "01/01/2025", "VIGENTE"}, rows[1])
	})

	t.Run("xlsx report", func(t *testing.T) {
		f, err := excelize.OpenReader(bytes.NewReader(getReportObject(t, client, xlsxObjectName)))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(export.ContractsSheet)
		require.NoError(t, err)
		assert.Equal(t, "Filtro Ativo: ATIVOS | Secretaria: TODAS", rows[1][0])
		assert.Equal(t, "01/01/2025 (15 dias restantes)", rows[4][4])
	})

	t.Run("snapshot event published", func(t *testing.T) {
		require.Equal(t, 1, mockEB.callCount)
		require.Len(t, mockEB.params.Entries, 1)
		entry := mockEB.params.Entries[0]
		assert.Equal(t, eventSource, *entry.Source)
		assert.Equal(t, eventDetailType, *entry.DetailType)
		assert.Equal(t, "test-event-bus", *entry.EventBusName)

		var snapshot contracts.MetricsSnapshotEvent
		require.NoError(t, json.Unmarshal([]byte(*entry.Detail), &snapshot))
		assert.Equal(t, testSourceKey, snapshot.SourceKey)
		assert.Equal(t, testReportDir+"/"+metricsObjectName, snapshot.ReportKey)
		assert.Equal(t, 1, snapshot.Matched)
		assert.Equal(t, contracts.Active, snapshot.Criteria.Status)
	})

	t.Run("skips when report is newer than source", func(t *testing.T) {
		err := handleS3Event(context.TODO(), client, mockEB, s3EventFor(testSourceKey, time.Now().Add(-time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, 1, mockEB.callCount)
	})

	t.Run("rebuilds when source is newer than report", func(t *testing.T) {
		err := handleS3Event(context.TODO(), client, mockEB, s3EventFor(testSourceKey, time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, 2, mockEB.callCount)
	})
}

func TestLambdaInvocationWithoutEventBus(t *testing.T) {
	setupLambdaEnvForTesting(t, nil)
	client := setupS3ForTesting(t)
	putSource(t, client, testSourceKey, testSheet)

	require.NoError(t, handleS3Event(context.TODO(), client, nil, s3EventFor(testSourceKey, time.Now())))
	rows, err := csv.NewReader(bytes.NewReader(getReportObject(t, client, csvObjectName))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4, "the default filters select every record")
}

func TestLambdaInvocationFailures(t *testing.T) {
	setupLambdaEnvForTesting(t, nil)
	client := setupS3ForTesting(t)
	putSource(t, client, testSourceKey, testSheet)
	mockEB := &mockEventBridgePutEventsAPI{}

	event := s3EventFor(testSourceKey, time.Now())
	event.Records = append(event.Records,
		s3EventFor("sources/2024/05/02/contracts/download.csv", time.Now()).Records[0],
		s3EventFor("elsewhere/download.csv", time.Now()).Records[0],
	)

	err := handleS3Event(context.TODO(), client, mockEB, event)
	require.Error(t, err)
	if errs, ok := err.(*multierror.Error); ok {
		assert.Equalf(t, 2, errs.Len(),
			"Invocation accumulated an unexpected number of errors: %s", errs)
	} else {
		require.Fail(t, "Invocation error could not be interpreted as *multierror.Error")
	}
	assert.Equal(t, 1, mockEB.callCount, "the valid record is still reported")
}

func TestLambdaInvocationPublishFailure(t *testing.T) {
	setupLambdaEnvForTesting(t, nil)
	client := setupS3ForTesting(t)
	putSource(t, client, testSourceKey, testSheet)
	mockEB := &mockEventBridgePutEventsAPI{expectedError: errors.New("could not publish")}

	err := handleS3Event(context.TODO(), client, mockEB, s3EventFor(testSourceKey, time.Now()))
	assert.ErrorContains(t, err, "error publishing to EventBridge: could not publish")
}

func TestInvalidReportFilter(t *testing.T) {
	setupLambdaEnvForTesting(t, goenv.EnvSet{"REPORT_STATUS_FILTER": "PENDENTE"})
	err := handleS3Event(context.TODO(), nil, nil, s3EventFor(testSourceKey, time.Now()))
	assert.ErrorIs(t, err, contracts.ErrInvalidStatusFilter)
}
