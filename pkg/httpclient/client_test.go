package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/agroverify/pkg/resilience"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		timeout []time.Duration
	}{
		{name: "with base URL only", baseURL: "https://api.example.com"},
		{name: "with custom timeout", baseURL: "https://api.example.com", timeout: []time.Duration{5 * time.Second}},
		{name: "with zero timeout uses default", baseURL: "https://api.example.com", timeout: []time.Duration{0}},
		{name: "empty base URL", baseURL: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var client *Client
			if tt.timeout != nil {
				client = NewClient(tt.baseURL, tt.timeout...)
			} else {
				client = NewClient(tt.baseURL)
			}

			if client == nil {
				t.Fatal("NewClient returned nil")
			}
			if client.baseURL != tt.baseURL {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.baseURL)
			}
			if client.httpClient == nil {
				t.Error("httpClient is nil")
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.Header.Get("X-Custom") != "value" {
			t.Errorf("X-Custom header = %q, want %q", r.Header.Get("X-Custom"), "value")
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	body, err := client.Get(context.Background(), "/test", map[string]string{"X-Custom": "value"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if decoded["status"] != "ok" {
		t.Errorf("status = %q, want ok", decoded["status"])
	}
}

func TestClient_Get_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Get(context.Background(), "/missing", nil)

	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
}

func TestClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["key"] != "value" {
			t.Errorf("payload key = %q, want value", payload["key"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"created":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	body, err := client.Post(context.Background(), "/create", map[string]string{"key": "value"}, nil)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if string(body) != `{"created":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestClient_Get_WithRetry(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := resilience.DefaultRetryConfig()
	config.InitialBackoff = time.Millisecond
	config.MaxAttempts = 5
	config.RetryableChecker = isHTTPRetryable

	client := NewClient(server.URL).WithRetry(config)
	body, err := client.Get(context.Background(), "/retry", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %s, want ok", body)
	}
	if atomic.LoadInt64(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestIsHTTPRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "500 error is retryable", err: &HTTPError{StatusCode: 500}, expected: true},
		{name: "503 error is retryable", err: &HTTPError{StatusCode: 503}, expected: true},
		{name: "429 too many requests is retryable", err: &HTTPError{StatusCode: 429}, expected: true},
		{name: "400 error is not retryable", err: &HTTPError{StatusCode: 400}, expected: false},
		{name: "404 error is not retryable", err: &HTTPError{StatusCode: 404}, expected: false},
		{name: "generic error is retryable", err: context.DeadlineExceeded, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHTTPRetryable(tt.err); got != tt.expected {
				t.Errorf("isHTTPRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
