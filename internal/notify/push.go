// Package notify – push provider client.
//
// This file implements the Pusher contract against an HTTP messenger-provider
// API. The provider's exact wire format is not part of the application
// contract; this client only commits to the logical call
// notify(userKey, templateCode, context) with a success/failure outcome.
// Some providers require a mutual-TLS client certificate, which is supported
// via a PEM pair from configuration.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haeun-dev/heartlink-backend/internal/config"
)

// sendMessagePath is the provider endpoint for template-based messages.
const sendMessagePath = "/v1/messenger/send-message"

// userKeyHeader carries the recipient's opaque account key.
const userKeyHeader = "X-User-Key"

// HTTPPusher dispatches push notifications over the provider's HTTP API.
type HTTPPusher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPusher builds an HTTPPusher from configuration. When a client
// certificate pair is configured it is loaded eagerly so that a broken
// certificate fails at startup rather than on the first match.
func NewHTTPPusher(cfg config.PushConfig) (*HTTPPusher, error) {
	transport := &http.Transport{}
	if cfg.ClientCertPEM != "" || cfg.ClientKeyPEM != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPEM, cfg.ClientKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("load push client certificate: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPPusher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// pushRequest is the JSON body sent to the provider.
type pushRequest struct {
	TemplateSetCode string            `json:"template_set_code"`
	Context         map[string]string `json:"context,omitempty"`
}

// pushResponse is the subset of the provider response this client inspects.
// Success is a pointer so that a 2xx body without the field (some providers
// reply with an empty object) is not mistaken for an explicit rejection.
type pushResponse struct {
	Success *bool  `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// Notify requests a push for userKey using templateCode. A non-2xx status or
// a success=false body is returned as an error; the caller decides whether
// that matters (the fan-out only logs and counts it).
func (p *HTTPPusher) Notify(ctx context.Context, userKey, templateCode string, tmplCtx map[string]string) error {
	body, err := json.Marshal(pushRequest{TemplateSetCode: templateCode, Context: tmplCtx})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+sendMessagePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userKeyHeader, userKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a bounded amount for the error detail.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("push provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// A 2xx with an unparseable body is treated as delivered; the
		// provider contract only guarantees the status code.
		return nil
	}
	if out.Success != nil && !*out.Success {
		if out.Detail != "" {
			return fmt.Errorf("push provider rejected dispatch: %s", out.Detail)
		}
		return fmt.Errorf("push provider rejected dispatch")
	}
	return nil
}

// NopPusher satisfies Pusher without doing anything. Used when the provider
// is disabled by configuration.
type NopPusher struct{}

// Notify implements Pusher as a no-op.
func (NopPusher) Notify(context.Context, string, string, map[string]string) error { return nil }
