package provider

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// newGatewayClient builds the pooled HTTP client shared by push gateway
// providers. The per-request timeout comes from the caller's context, so the
// client-level timeout is only a safety net.
func newGatewayClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// validateEndpoint rejects anything that is not a well-formed http(s) URL.
func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme %q not supported", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	return nil
}

// errorBody reads a bounded, sanitized snippet of a non-success response
// body for error context. Newlines are flattened to keep log lines intact.
func errorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if len(body) == 0 {
		return ""
	}
	s := strings.ReplaceAll(string(body), "\n", " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// gatewayStatusError formats a non-2xx gateway response as a transient
// error.
func gatewayStatusError(resp *http.Response) error {
	msg := errorBody(resp)
	if msg == "" {
		return fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, msg)
}
