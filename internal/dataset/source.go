package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// ErrDownloadFailed is returned when the sheet URL answers with a non-200 status.
var ErrDownloadFailed = fmt.Errorf("error downloading file")

// Source opens the text of a contracts sheet.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

type HTTPClientAPI interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource downloads the sheet export from a URL.
type HTTPSource struct {
	URL    string
	Client HTTPClientAPI
	// MaxBackoff bounds how long failed requests are retried; zero disables retries.
	MaxBackoff time.Duration
}

func (s HTTPSource) String() string {
	return s.URL
}

// Open starts the download and returns the response body.
// Requests that fail in transit are retried until MaxBackoff elapses; a response with a
// status other than 200 is not retried and yields ErrDownloadFailed.
func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := startDownload(ctx, client, s.URL, s.MaxBackoff)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected http response status %d", ErrDownloadFailed, resp.StatusCode)
	}
	return resp.Body, nil
}

// startDownload starts a new download request and returns the response.
// Returns a non-nil error if the request either could not be initialized or never succeeded.
func startDownload(ctx context.Context, c HTTPClientAPI, url string, maxBackoff time.Duration) (resp *http.Response, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = maxBackoff
		b = eb
	}
	attempt := 1
	span, spanCtx := tracer.StartSpanFromContext(ctx, "download.start")
	err = backoff.RetryNotify(func() (err error) {
		attemptSpan, _ := tracer.StartSpanFromContext(spanCtx, fmt.Sprintf("attempt.%d", attempt))
		resp, err = c.Do(req)
		attemptSpan.Finish(tracer.WithError(err))
		return err
	}, backoff.WithContext(b, ctx), func(error, time.Duration) { attempt++ })
	span.Finish(tracer.WithError(err))
	return resp, err
}

// FileSource reads the sheet export from a local file.
type FileSource string

func (s FileSource) String() string {
	return string(s)
}

func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(s))
}

// readText reads the full document. Payloads that are not valid UTF-8 are assumed to be
// Windows-1252, the encoding spreadsheet tools commonly fall back to for CSV.
func readText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if utf8.Valid(b) {
		return string(b), nil
	}
	decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(b)))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
