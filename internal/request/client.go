// Package request is the HTTP layer shared by all API wrappers.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenFunc returns the bearer token to attach, or "" for anonymous calls.
type TokenFunc func(ctx context.Context) string

// Client performs JSON calls against the platform API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Token      TokenFunc
}

// New creates a client. A zero timeout leaves the http.Client without one.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger.With("component", "request"),
	}
}

// Do sends the request and decodes the whole response body into out.
// query may be nil; body is JSON-encoded when non-nil; out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, query, contentType, bodyReader, out)
}

// Multipart sends fields and one file part as multipart/form-data.
func (c *Client) Multipart(ctx context.Context, method, path string, fields map[string]string, fileField, fileName string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	fw, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return c.send(ctx, method, path, nil, mw.FormDataContentType(), &buf, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if c.Token != nil {
		if token := c.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.Logger.Debug("HTTP request", "method", method, "url", target, "request_id", reqID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(raw), "request_id", reqID)

	var result Result
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			if resp.StatusCode >= 300 {
				return &APIError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(raw))}
			}
			return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.OK() {
		msg := result.Msg
		if msg == "" {
			msg = result.Error
		}
		return &APIError{Status: resp.StatusCode, Code: result.Code, Msg: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete performs a DELETE request. Some endpoints take ids in the query, others in the body.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodDelete, path, query, body, out)
}
