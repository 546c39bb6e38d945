package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/paybot/core/config"
)

func newTestClient(url string, timeoutSeconds int) *Client {
	return New(coreconfig.ResolverConfig{
		BaseURL:        url,
		APIKey:         "test-key",
		TimeoutSeconds: timeoutSeconds,
	})
}

func TestResolveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/codes/PAY123456" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","serviceCategory":"utilities","providerName":"City Water","billerReference":"CW-9917"}`))
	}))
	defer srv.Close()

	biller, err := newTestClient(srv.URL, 2).Resolve(context.Background(), "utilities", "PAY123456")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if biller.ProviderName != "City Water" || biller.BillerReference != "CW-9917" {
		t.Fatalf("unexpected biller: %+v", biller)
	}
}

func TestResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Resolve(context.Background(), "utilities", "PAY000001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveFailureStatusBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failure"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Resolve(context.Background(), "utilities", "PAY000001")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for failure body, got %v", err)
	}
}

func TestResolveUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Resolve(context.Background(), "utilities", "PAY123456")
	if !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestResolveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Resolve(context.Background(), "utilities", "PAY123456")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	start := time.Now()
	_, err := newTestClient(srv.URL, 1).Resolve(context.Background(), "utilities", "PAY123456")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
}

func TestCategoryURLOverride(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_, _ = w.Write([]byte(`{"status":"success","serviceCategory":"tv","providerName":"SatTV","billerReference":"TV-1"}`))
	}))
	defer srv.Close()

	c := New(coreconfig.ResolverConfig{
		BaseURL:        "http://127.0.0.1:1", // unreachable, must not be used
		CategoryURLs:   map[string]string{"tv": srv.URL},
		TimeoutSeconds: 2,
	})
	if _, err := c.Resolve(context.Background(), "tv", "PAY555555"); err != nil {
		t.Fatalf("Resolve with category override: %v", err)
	}
	if !hit {
		t.Fatal("category URL was not used")
	}
}
