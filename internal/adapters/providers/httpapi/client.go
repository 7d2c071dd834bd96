// Package httpapi talks to real brokerage and payout providers over a neutral JSON contract.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"golang.org/x/oauth2/clientcredentials"
)

const maxErrorBody = 4 << 10

// Credentials configures OAuth2 client-credentials authentication. An empty
// TokenURL disables authentication.
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewHTTPClient returns a client that attaches bearer tokens obtained with the
// client-credentials grant. Tokens are cached and refreshed by the oauth2 package.
func NewHTTPClient(ctx context.Context, creds Credentials, timeout time.Duration) *http.Client {
	if creds.TokenURL == "" {
		return &http.Client{Timeout: timeout}
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
	}
	client := cfg.Client(ctx)
	client.Timeout = timeout
	return client
}

// client is the shared JSON plumbing of the provider adapters.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, httpClient *http.Client) client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// do sends body as JSON and decodes a 2xx response into out. A 404 maps to
// apperrors.ErrNotFound; every other failure wraps apperrors.ErrExternalProvider.
func (c client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding request: %v", apperrors.ErrExternalProvider, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", apperrors.ErrExternalProvider, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %s %s: %w", apperrors.ErrExternalProvider, method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrExternalProvider, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s returned %s: %s", apperrors.ErrExternalProvider, method, path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %v", apperrors.ErrExternalProvider, method, path, err)
	}
	return nil
}
