package dataset

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

type mockHTTPClient func(*http.Request) (*http.Response, error)

func (m mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m(req)
}

func readAll(t *testing.T, src Source) string {
	t.Helper()
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sheet.csv":
			w.Write([]byte(testSheet))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	t.Run("success", func(t *testing.T) {
		src := HTTPSource{URL: server.URL + "/sheet.csv", Client: server.Client()}
		assert.Equal(t, testSheet, readAll(t, src))
	})

	t.Run("non-200 status", func(t *testing.T) {
		src := HTTPSource{URL: server.URL + "/missing.csv", Client: server.Client()}
		_, err := src.Open(context.Background())
		assert.ErrorIs(t, err, ErrDownloadFailed)
		assert.ErrorContains(t, err, "404")
	})

	t.Run("load through dataset", func(t *testing.T) {
		d := New(contracts.DefaultSchema, log.NewNopLogger())
		require.NoError(t, d.Load(context.Background(), HTTPSource{URL: server.URL + "/sheet.csv"}))
		assert.Len(t, d.Records(), 3)
		assert.Equal(t, server.URL+"/sheet.csv", d.Status().Source)
	})
}

func TestHTTPSourceRetriesTransportErrors(t *testing.T) {
	calls := 0
	client := mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("ok")),
		}, nil
	})

	src := HTTPSource{URL: "https://example.com/sheet.csv", Client: client, MaxBackoff: time.Minute}
	assert.Equal(t, "ok", readAll(t, src))
	assert.Equal(t, 2, calls)
}

func TestHTTPSourceWithoutBackoffDoesNotRetry(t *testing.T) {
	calls := 0
	cause := errors.New("connection reset")
	client := mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, cause
	})

	_, err := HTTPSource{URL: "https://example.com/sheet.csv", Client: client}.Open(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestHTTPSourceInvalidURL(t *testing.T) {
	_, err := HTTPSource{URL: "://bad"}.Open(context.Background())
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.csv")
	require.NoError(t, os.WriteFile(path, []byte(testSheet), 0o644))

	assert.Equal(t, testSheet, readAll(t, FileSource(path)))
	assert.Equal(t, path, FileSource(path).String())

	_, err := FileSource(filepath.Join(t.TempDir(), "missing.csv")).Open(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadTextDecodesWindows1252(t *testing.T) {
	// "SITUAÇÃO" encoded as Windows-1252
	latin := []byte{'S', 'I', 'T', 'U', 'A', 0xC7, 0xC3, 'O'}
	text, err := readText(strings.NewReader(string(latin)))
	require.NoError(t, err)
	assert.Equal(t, "SITUAÇÃO", text)

	text, err = readText(strings.NewReader("SITUAÇÃO"))
	require.NoError(t, err)
	assert.Equal(t, "SITUAÇÃO", text, "valid UTF-8 passes through unchanged")
}
