/**
 * @description
 * This package provides a client for the Supabase PostgREST table API. It
 * encapsulates authenticated row-level CRUD against the external relational
 * store: filtered selects (including embedded resources), inserts and guarded
 * updates that return the affected rows, deletes, and exact row counts.
 *
 * Every mutation the service performs goes through this client; there is no
 * direct database connection. Guarded updates (a filter such as paid=is.false
 * on a PATCH) are the only concurrency control the store offers, so the
 * helpers here always surface the rows a mutation actually touched.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, net/url, strings, time: Standard Go libraries.
 */
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnreachable wraps transport-level failures (DNS, refused connection,
// timeout). Callers can treat it as "no request reached the store".
var ErrUnreachable = errors.New("postgrest: store unreachable")

// Client is a client for a PostgREST endpoint.
type Client struct {
	BaseURL    string // e.g. https://xyz.supabase.co
	APIKey     string // service-role key
	HTTPClient *http.Client
}

// NewClient creates a new PostgREST client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError is a structured error response from PostgREST.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("postgrest error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest error (status %d)", e.StatusCode)
}

// IsNoRows reports whether err is the "zero rows for a single-object request"
// response (PGRST116 / HTTP 406).
func IsNoRows(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "PGRST116" || apiErr.StatusCode == http.StatusNotAcceptable
}

// Filter helpers producing PostgREST operator expressions.

// Eq returns an equality filter value, e.g. "eq.true".
func Eq(v interface{}) string { return fmt.Sprintf("eq.%v", v) }

// Is returns an IS filter value for booleans and null, e.g. "is.false".
func Is(v interface{}) string { return fmt.Sprintf("is.%v", v) }

// Gte returns a greater-or-equal filter value.
func Gte(v interface{}) string { return fmt.Sprintf("gte.%v", v) }

// Lte returns a less-or-equal filter value.
func Lte(v interface{}) string { return fmt.Sprintf("lte.%v", v) }

// In returns a set-membership filter value, e.g. "in.(a,b,c)".
func In(values []string) string {
	return "in.(" + strings.Join(values, ",") + ")"
}

// Select fetches the rows matching params from table and decodes them into out,
// which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, params url.Values, out interface{}) error {
	body, _, err := c.do(ctx, http.MethodGet, table, params, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode rows from %s: %w", table, err)
	}
	return nil
}

// SelectSingle fetches exactly one row matching params and decodes it into out.
// Zero or multiple matching rows yield an *APIError satisfying IsNoRows.
func (c *Client) SelectSingle(ctx context.Context, table string, params url.Values, out interface{}) error {
	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	body, _, err := c.do(ctx, http.MethodGet, table, params, headers, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode row from %s: %w", table, err)
	}
	return nil
}

// Count returns the exact number of rows matching params without fetching them.
func (c *Client) Count(ctx context.Context, table string, params url.Values) (int64, error) {
	headers := map[string]string{"Prefer": "count=exact"}
	_, resp, err := c.do(ctx, http.MethodHead, table, params, headers, nil)
	if err != nil {
		return 0, err
	}
	// Content-Range has the shape "0-24/3573" or "*/0".
	contentRange := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("postgrest: missing count in Content-Range %q", contentRange)
	}
	count, err := strconv.ParseInt(contentRange[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgrest: malformed count in Content-Range %q", contentRange)
	}
	return count, nil
}

// Insert inserts record into table and decodes the returned representation
// (always a JSON array) into out, a pointer to a slice. out may be nil when
// the caller does not need the inserted rows.
func (c *Client) Insert(ctx context.Context, table string, record interface{}, out interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal insert for %s: %w", table, err)
	}
	headers := map[string]string{"Prefer": "return=representation"}
	if out == nil {
		headers["Prefer"] = "return=minimal"
	}
	body, _, err := c.do(ctx, http.MethodPost, table, nil, headers, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode inserted rows from %s: %w", table, err)
	}
	return nil
}

// Update patches every row matching params and decodes the rows the update
// actually touched into out (pointer to a slice; may be nil). Combined with a
// guard filter this doubles as a compare-and-swap: rows claimed by somebody
// else are simply absent from the result.
func (c *Client) Update(ctx context.Context, table string, params url.Values, patch interface{}, out interface{}) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal update for %s: %w", table, err)
	}
	headers := map[string]string{"Prefer": "return=representation"}
	if out == nil {
		headers["Prefer"] = "return=minimal"
	}
	body, _, err := c.do(ctx, http.MethodPatch, table, params, headers, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode updated rows from %s: %w", table, err)
	}
	return nil
}

// Delete removes every row matching params.
func (c *Client) Delete(ctx context.Context, table string, params url.Values) error {
	_, _, err := c.do(ctx, http.MethodDelete, table, params, map[string]string{"Prefer": "return=minimal"}, nil)
	return err
}

// do executes one request against /rest/v1/{table}. Read-only requests are
// retried once on transport failure; mutations are never retried here because
// a transport error does not prove the store never saw the request.
func (c *Client) do(ctx context.Context, method, table string, params url.Values, headers map[string]string, payload []byte) ([]byte, *http.Response, error) {
	endpoint := c.BaseURL + "/rest/v1/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	attempts := 1
	if method == http.MethodGet || method == http.MethodHead {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s request for %s: %w", method, table, err)
		}
		req.Header.Set("apikey", c.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnreachable, err)
			if ctx.Err() != nil {
				return nil, nil, lastErr
			}
			continue
		}

		bodyBytes, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, nil, fmt.Errorf("failed to read response from %s: %w", table, readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if len(bodyBytes) > 0 {
				if err := json.Unmarshal(bodyBytes, apiErr); err != nil {
					log.Printf("level=warn component=postgrest table=%s status=%d msg=\"non-2xx response (unparsable error body)\"", table, resp.StatusCode)
				}
			}
			return nil, resp, apiErr
		}

		return bodyBytes, resp, nil
	}

	return nil, nil, lastErr
}
