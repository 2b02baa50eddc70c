/**
 * @description
 * This package provides a client for the external evidence blob store. The
 * ledger never stores file bytes itself: proof-of-payment uploads are handed to
 * the blob store and only the returned reference string is persisted on the
 * donation record.
 *
 * The blob store is a collaborator, not part of this system; its contract is
 * two operations: store bytes and resolve a reference to a fetchable URL.
 *
 * @dependencies
 * - bytes, context, encoding/json, errors, fmt, net/http, time: Standard Go libraries.
 */

package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStoreUnavailable indicates the blob store could not service the request.
// Callers surface this directly; evidence upload failures are never retried
// silently and never affect donation state.
var ErrStoreUnavailable = errors.New("blob store unavailable")

// Client is an HTTP client for the blob store service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new blob store client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type storeResponse struct {
	Reference string `json:"reference"`
}

// Store uploads the given bytes and returns the opaque reference the ledger
// persists. The content type is forwarded so the store can serve the evidence
// back correctly.
func (c *Client) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/blobs", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build blob store request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var body storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrStoreUnavailable, err)
	}
	if strings.TrimSpace(body.Reference) == "" {
		return "", fmt.Errorf("%w: empty reference in response", ErrStoreUnavailable)
	}
	return body.Reference, nil
}

// URLFor resolves a stored reference to a fetchable URL. This is a pure
// computation against the store's addressing scheme; no network call is made.
func (c *Client) URLFor(reference string) string {
	if strings.TrimSpace(reference) == "" {
		return ""
	}
	return c.baseURL + "/v1/blobs/" + url.PathEscape(reference)
}
