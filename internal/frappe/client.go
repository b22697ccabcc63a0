package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"mmcore/internal/apperr"
)

// Client talks to a Frappe/ERPNext site over its REST API using
// token key:secret authentication.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient builds a client for one Frappe site.
func NewClient(siteURL, apiKey, apiSecret string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   siteURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != "" && c.apiSecret != ""
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal("encode frappe request").WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return apperr.Internal("build frappe request").WithCause(err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.ExternalService("frappe", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.ExternalService("frappe", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFound("frappe document not found", nil)
	case resp.StatusCode == http.StatusForbidden:
		return apperr.Authorization("frappe access denied")
	case resp.StatusCode >= 400:
		c.logger.Warn("frappe request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return apperr.ExternalService("frappe", fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperr.ExternalService("frappe", err)
		}
	}
	return nil
}

// GetDoc fetches one document by doctype and name.
func (c *Client) GetDoc(ctx context.Context, doctype, name string) (map[string]any, error) {
	var wrapper struct {
		Data map[string]any `json:"data"`
	}
	path := fmt.Sprintf("/api/resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// GetList fetches documents of a doctype with optional filters (a Frappe
// filter expression, JSON-encoded) and field projection.
func (c *Client) GetList(ctx context.Context, doctype string, filters any, fields []string, limit int) ([]map[string]any, error) {
	query := url.Values{}
	if filters != nil {
		encoded, err := json.Marshal(filters)
		if err != nil {
			return nil, apperr.Internal("encode frappe filters").WithCause(err)
		}
		query.Set("filters", string(encoded))
	}
	if len(fields) > 0 {
		encoded, _ := json.Marshal(fields)
		query.Set("fields", string(encoded))
	}
	if limit > 0 {
		query.Set("limit_page_length", fmt.Sprint(limit))
	}

	var wrapper struct {
		Data []map[string]any `json:"data"`
	}
	path := fmt.Sprintf("/api/resource/%s", url.PathEscape(doctype))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// CreateDoc inserts a new document and returns it.
func (c *Client) CreateDoc(ctx context.Context, doctype string, doc map[string]any) (map[string]any, error) {
	var wrapper struct {
		Data map[string]any `json:"data"`
	}
	path := fmt.Sprintf("/api/resource/%s", url.PathEscape(doctype))
	if err := c.do(ctx, http.MethodPost, path, nil, doc, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// UpdateDoc applies a partial update to one document.
func (c *Client) UpdateDoc(ctx context.Context, doctype, name string, updates map[string]any) (map[string]any, error) {
	var wrapper struct {
		Data map[string]any `json:"data"`
	}
	path := fmt.Sprintf("/api/resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	if err := c.do(ctx, http.MethodPut, path, nil, updates, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// DeleteDoc removes one document.
func (c *Client) DeleteDoc(ctx context.Context, doctype, name string) error {
	path := fmt.Sprintf("/api/resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CallMethod invokes a whitelisted server method.
func (c *Client) CallMethod(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	var wrapper struct {
		Message map[string]any `json:"message"`
	}
	path := "/api/method/" + method
	if err := c.do(ctx, http.MethodPost, path, nil, args, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Message, nil
}
