package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestNew(t *testing.T) {
	client := New()

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.HTTPClient == nil {
		t.Fatal("Expected HTTPClient to be initialized")
	}

	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("Expected timeout %v, got %v", defaultTimeout, client.HTTPClient.Timeout)
	}

	if client.Retries != defaultRetries {
		t.Errorf("Expected retries %d, got %d", defaultRetries, client.Retries)
	}

	if client.UserAgent != userAgentValue {
		t.Errorf("Expected user agent '%s', got '%s'", userAgentValue, client.UserAgent)
	}
}

func TestNewWith(t *testing.T) {
	cfg := Config{
		Timeout:   10 * time.Second,
		Retries:   5,
		UserAgent: "Custom Agent",
		ProxyURL:  "http://proxy.example.com:8080",
	}

	client := NewWith(cfg)

	if client.HTTPClient.Timeout != cfg.Timeout {
		t.Errorf("Expected timeout %v, got %v", cfg.Timeout, client.HTTPClient.Timeout)
	}

	if client.Retries != cfg.Retries {
		t.Errorf("Expected retries %d, got %d", cfg.Retries, client.Retries)
	}

	if client.UserAgent != cfg.UserAgent {
		t.Errorf("Expected user agent '%s', got '%s'", cfg.UserAgent, client.UserAgent)
	}
}

func TestNewWithNegativeValues(t *testing.T) {
	client := NewWith(Config{Timeout: -1 * time.Second, Retries: -1})

	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("Expected timeout %v, got %v", defaultTimeout, client.HTTPClient.Timeout)
	}

	if client.Retries != defaultRetries {
		t.Errorf("Expected retries %d, got %d", defaultRetries, client.Retries)
	}
}

func TestNewWithInvalidProxy(t *testing.T) {
	client := NewWith(Config{ProxyURL: "invalid-proxy-url"})

	if client.HTTPClient == nil {
		t.Fatal("Expected HTTPClient to be initialized")
	}
}

func TestGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgentValue {
			t.Errorf("Expected User-Agent '%s', got '%s'", userAgentValue, ua)
		}
		_, _ = w.Write([]byte("test response"))
	}))
	defer server.Close()

	resp, err := New().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewWith(Config{Retries: 3}).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 calls, got %d", got)
	}
}

func TestGetReturnsLastResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := NewWith(Config{Retries: 2}).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status code %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
}

func TestGetStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewWith(Config{Retries: 5}).Get(ctx, server.URL); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestDecodesBrotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, _ = bw.Write([]byte("brotli body"))
	_ = bw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ae := r.Header.Get("Accept-Encoding"); ae != "br, gzip" {
			t.Errorf("Expected Accept-Encoding 'br, gzip', got '%s'", ae)
		}
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	assertBody(t, server.URL, "brotli body")
}

func TestDecodesGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte("gzip body"))
	_ = gw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	assertBody(t, server.URL, "gzip body")
}

func TestRangeRequestsAreNotNegotiated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ae := r.Header.Get("Accept-Encoding"); ae != "" {
			t.Errorf("Expected no Accept-Encoding on range request, got '%s'", ae)
		}
		_, _ = w.Write([]byte("chunk"))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Range", "bytes=0-4")
	resp, err := New().HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = resp.Body.Close()
}

func assertBody(t *testing.T, url, want string) {
	t.Helper()
	resp, err := New().Get(context.Background(), url)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != want {
		t.Errorf("Expected body %q, got %q", want, string(data))
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Error("Expected Content-Encoding to be removed")
	}
}

func TestProxyFromURLString(t *testing.T) {
	proxyFunc, err := proxyFromURLString("http://proxy.example.com:8080")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if proxyFunc == nil {
		t.Fatal("Expected proxy function to be non-nil")
	}
}

func TestProxyFromURLStringInvalid(t *testing.T) {
	for _, raw := range []string{"://invalid-url", "invalid-proxy-url"} {
		if _, err := proxyFromURLString(raw); err == nil {
			t.Fatalf("Expected error for invalid proxy URL %q", raw)
		}
	}
}
