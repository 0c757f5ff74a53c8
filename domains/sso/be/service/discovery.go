package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDiscoverer reads /.well-known/openid-configuration from the issuer.
type HTTPDiscoverer struct {
	client *http.Client
}

// NewHTTPDiscoverer uses client, or a 5 second timeout client when nil.
func NewHTTPDiscoverer(client *http.Client) *HTTPDiscoverer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPDiscoverer{client: client}
}

func (d *HTTPDiscoverer) Discover(ctx context.Context, issuer string) (Discovery, error) {
	wellKnown := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Discovery{}, fmt.Errorf("%w: well-known returned %s", ErrDiscovery, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	var doc Discovery
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Discovery{}, fmt.Errorf("%w: invalid configuration document: %w", ErrDiscovery, err)
	}
	if strings.TrimSuffix(doc.Issuer, "/") != strings.TrimSuffix(issuer, "/") {
		return Discovery{}, fmt.Errorf("%w: issuer mismatch: expected %q, got %q", ErrDiscovery, issuer, doc.Issuer)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.JWKSURI == "" {
		return Discovery{}, fmt.Errorf("%w: configuration is missing required endpoints", ErrDiscovery)
	}
	return doc, nil
}

var _ Discoverer = (*HTTPDiscoverer)(nil)
