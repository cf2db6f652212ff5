package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestFetcherSuccess(t *testing.T) {
	body := "1 SN 10:00:00 -30:00:00 2000 0 0 0 EQU - - 2000 - - 2000\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != body {
		t.Errorf("body mismatch: got %q", data)
	}
}

// Transient 5xx responses are retried.
func TestFetcherRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	fetcher.client.RetryWaitMin = 0
	fetcher.client.RetryWaitMax = 0
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "ok" || calls.Load() != 2 {
		t.Errorf("data %q after %d calls", data, calls.Load())
	}
}

func TestFetcherStatusError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewFetcher(server.URL, testLogger).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestFetcherBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("A", 1024*1024)
		for i := 0; i < 11; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	_, err := NewFetcher(server.URL, testLogger).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got %v", err)
	}
}

func TestFetcherWithoutURL(t *testing.T) {
	if _, err := NewFetcher("", nil).Fetch(context.Background()); err == nil {
		t.Error("expected error without URL")
	}
}
