// Package resolver talks to the external code-resolution service that maps a
// redeemable code to biller metadata.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/core/logger"
)

var (
	// ErrNotFound means the code is unknown or expired; the user can correct
	// this by obtaining a fresh code.
	ErrNotFound = errors.New("resolver: code not found")
	// ErrMisconfigured means the service rejected our credentials. Operator
	// facing; users only get a generic apology.
	ErrMisconfigured = errors.New("resolver: authentication rejected")
	// ErrUnavailable covers timeouts and transient upstream failures; the user
	// may simply retry shortly.
	ErrUnavailable = errors.New("resolver: service unavailable")
)

// Biller is the metadata a successfully resolved code points at.
type Biller struct {
	ServiceCategory string `json:"serviceCategory"`
	ProviderName    string `json:"providerName"`
	BillerReference string `json:"billerReference"`
}

type resolveResponse struct {
	Status string `json:"status"`
	Biller
}

// Client resolves codes over HTTP with a hard per-call timeout.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	categoryURLs map[string]string
	apiKey       string
}

// New builds a Client from configuration. The timeout bounds the whole call
// including connection setup, so a slow upstream becomes a retryable failure
// rather than a hang.
func New(cfg coreconfig.ResolverConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		categoryURLs: cfg.CategoryURLs,
		apiKey:       cfg.APIKey,
	}
}

// Resolve maps a canonical code to its biller. Distinct upstream outcomes map
// to distinct errors: 401 -> ErrMisconfigured, 404 -> ErrNotFound, timeouts
// and remaining failures -> ErrUnavailable.
func (c *Client) Resolve(ctx context.Context, category, code string) (*Biller, error) {
	target := c.targetURL(category, code)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("resolver: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, "resolver", "resolve.fail",
			slog.String("status", "retry"),
			slog.String("category", category),
			slog.String("reason", classify(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, classify(err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		logger.Error(ctx, "resolver", "resolve.auth",
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
		)
		return nil, ErrMisconfigured
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		logger.Warn(ctx, "resolver", "resolve.fail",
			slog.String("status", "retry"),
			slog.Int("http_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed response", ErrUnavailable)
	}
	if !strings.EqualFold(body.Status, "success") {
		return nil, ErrNotFound
	}

	logger.Debug(ctx, "resolver", "resolve.ok",
		slog.String("status", "ok"),
		slog.String("category", category),
		slog.Duration("duration", logger.Took(start)),
	)
	return &body.Biller, nil
}

func (c *Client) targetURL(category, code string) string {
	base := c.baseURL
	if u, ok := c.categoryURLs[category]; ok && u != "" {
		base = strings.TrimRight(u, "/")
	}
	return base + "/codes/" + code
}

func classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "network"
}
