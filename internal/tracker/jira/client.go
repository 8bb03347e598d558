package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ewjdev/anyclick/internal/tracker"
)

// Client is a thin HTTP client for the Jira Cloud REST API v2.
// It handles HTTP Basic authentication with an email/API-token pair,
// JSON marshaling, automatic retry with exponential backoff on HTTP 429,
// and mapping of response statuses onto the tracker error taxonomy.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new Jira HTTP client. The baseURL should be the
// root URL of the Jira Cloud instance (e.g., https://example.atlassian.net).
func NewClient(baseURL, email, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body interface{},
	result interface{},
) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// PostMultipart uploads a single file as multipart/form-data. Jira
// requires the X-Atlassian-Token header to bypass XSRF checks on
// attachment endpoints.
func (c *Client) PostMultipart(
	ctx context.Context,
	path string,
	filename string,
	data []byte,
) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing multipart data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, &buf,
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &tracker.TransientNetworkError{
			Op:  "POST " + path,
			Err: err,
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, path, respBody)
	}

	return nil
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(
			ctx, method, url, bodyReader,
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.SetBasicAuth(c.email, c.apiToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &tracker.TransientNetworkError{
				Op:  method + " " + path,
				Err: err,
			}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &tracker.TransientNetworkError{
				Op:  method + " " + path,
				Err: readErr,
			}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf(
				"rate limited (429) on %s %s", method, path,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return c.statusError(resp.StatusCode, path, respBody)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w",
				method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf(
		"max retries (%d) exceeded: %w", c.maxRetries, lastErr,
	)
}

// statusError maps a non-success HTTP status onto the tracker error
// taxonomy. The response body is preserved for diagnostics and, on 400,
// for free-text error classification.
func (c *Client) statusError(
	status int,
	path string,
	body []byte,
) error {
	switch status {
	case http.StatusUnauthorized:
		return &tracker.AuthenticationError{BaseURL: c.baseURL}
	case http.StatusForbidden:
		return &tracker.AuthorizationError{Op: path}
	case http.StatusNotFound:
		return &tracker.NotFoundError{Resource: path}
	case http.StatusBadRequest:
		verr := &tracker.ValidationError{Raw: string(body)}
		var jiraErr ErrorResponse
		if json.Unmarshal(body, &jiraErr) == nil {
			verr.Messages = jiraErr.ErrorMessages
			verr.FieldErrors = jiraErr.Errors
		}
		return verr
	default:
		return &tracker.UnknownTrackerError{
			StatusCode: status,
			Op:         path,
			Body:       string(body),
		}
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
