/**
 * @description
 * This package provides a minimal client for the Supabase Storage object API.
 * The service only needs one capability: upload a binary blob (a dog photo)
 * into a public bucket and hand back the public URL. Object lifecycle beyond
 * that (expiry, deletion, signed URLs) stays with the storage backend.
 *
 * @dependencies
 * - context, fmt, io, net/http, strings, time: Standard Go libraries.
 */
package storageclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the Supabase Storage API.
type Client struct {
	BaseURL    string // e.g. https://xyz.supabase.co
	APIKey     string // service-role key
	Bucket     string
	HTTPClient *http.Client
}

// NewClient creates a new storage client for a single bucket.
func NewClient(baseURL, apiKey, bucket string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Bucket:  bucket,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload stores body under objectPath in the bucket (overwriting any previous
// object at that path) and returns the public URL.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.BaseURL, c.Bucket, strings.TrimLeft(objectPath, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	io.Copy(io.Discard, resp.Body)

	return c.PublicURL(objectPath), nil
}

// PublicURL returns the public URL for an object in the bucket.
func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, c.Bucket, strings.TrimLeft(objectPath, "/"))
}
