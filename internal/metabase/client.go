package metabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mmcore/internal/apperr"
)

// DefaultEmbedTTL is how long a signed embed link stays valid.
const DefaultEmbedTTL = 10 * time.Minute

// Well known dashboards referenced by name from chat commands.
var dashboardMapping = map[string]int{
	"sales":     1,
	"finance":   2,
	"inventory": 3,
	"hr":        4,
}

// SearchResult is one dashboard or question returned by the search API.
type SearchResult struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Client builds Metabase links and signed embed tokens.
type Client struct {
	domain          string
	embeddingSecret string
	sessionToken    string
	http            *http.Client
	logger          *zap.Logger
}

// NewClient builds a Metabase client. The embedding secret signs embed
// tokens; the session token authenticates search API calls.
func NewClient(domain, embeddingSecret, sessionToken string, logger *zap.Logger) *Client {
	return &Client{
		domain:          strings.TrimRight(domain, "/"),
		embeddingSecret: embeddingSecret,
		sessionToken:    sessionToken,
		http:            &http.Client{Timeout: 15 * time.Second},
		logger:          logger,
	}
}

// DashboardID resolves a well known dashboard name, 0 when unknown.
func (c *Client) DashboardID(name string) int {
	return dashboardMapping[strings.ToLower(name)]
}

// DashboardURL is the plain application link to a dashboard.
func (c *Client) DashboardURL(id int) string {
	return fmt.Sprintf("%s/dashboard/%d", c.domain, id)
}

// QuestionURL is the plain application link to a saved question.
func (c *Client) QuestionURL(id int) string {
	return fmt.Sprintf("%s/question/%d", c.domain, id)
}

// PublicDashboardURL links a dashboard shared via a public UUID.
func (c *Client) PublicDashboardURL(uuid string) string {
	return fmt.Sprintf("%s/public/dashboard/%s", c.domain, uuid)
}

// PublicQuestionURL links a question shared via a public UUID.
func (c *Client) PublicQuestionURL(uuid string) string {
	return fmt.Sprintf("%s/public/question/%s", c.domain, uuid)
}

func (c *Client) signEmbed(resource map[string]any, params map[string]any, ttl time.Duration) (string, error) {
	if c.embeddingSecret == "" {
		return "", apperr.Internal("metabase embedding secret not configured")
	}
	if params == nil {
		params = map[string]any{}
	}
	if ttl <= 0 {
		ttl = DefaultEmbedTTL
	}
	claims := jwt.MapClaims{
		"resource": resource,
		"params":   params,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.embeddingSecret))
	if err != nil {
		return "", apperr.Internal("sign metabase embed token").WithCause(err)
	}
	return signed, nil
}

// EmbeddedDashboardURL returns a signed, expiring embed link for a
// dashboard with the given locked parameters.
func (c *Client) EmbeddedDashboardURL(id int, params map[string]any, ttl time.Duration) (string, error) {
	signed, err := c.signEmbed(map[string]any{"dashboard": id}, params, ttl)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/embed/dashboard/%s#bordered=true&titled=true", c.domain, signed), nil
}

// EmbeddedQuestionURL returns a signed, expiring embed link for a question.
func (c *Client) EmbeddedQuestionURL(id int, params map[string]any, ttl time.Duration) (string, error) {
	signed, err := c.signEmbed(map[string]any{"question": id}, params, ttl)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/embed/question/%s#bordered=true&titled=true", c.domain, signed), nil
}

func (c *Client) search(ctx context.Context, query, model string) ([]SearchResult, error) {
	if c.sessionToken == "" {
		return nil, apperr.Internal("metabase session token not configured")
	}
	u := fmt.Sprintf("%s/api/search?q=%s&models=%s", c.domain, url.QueryEscape(query), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Internal("build metabase request").WithCause(err)
	}
	req.Header.Set("X-Metabase-Session", c.sessionToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.ExternalService("metabase", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.ExternalService("metabase", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.ExternalService("metabase", fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}

	var wrapper struct {
		Data []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Model       string `json:"model"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, apperr.ExternalService("metabase", err)
	}

	out := make([]SearchResult, 0, len(wrapper.Data))
	for _, item := range wrapper.Data {
		r := SearchResult{ID: item.ID, Name: item.Name, Description: item.Description}
		if item.Model == "card" {
			r.URL = c.QuestionURL(item.ID)
		} else {
			r.URL = c.DashboardURL(item.ID)
		}
		out = append(out, r)
	}
	return out, nil
}

// SearchDashboards finds dashboards matching the query text.
func (c *Client) SearchDashboards(ctx context.Context, query string) ([]SearchResult, error) {
	return c.search(ctx, query, "dashboard")
}

// SearchQuestions finds saved questions matching the query text.
func (c *Client) SearchQuestions(ctx context.Context, query string) ([]SearchResult, error) {
	return c.search(ctx, query, "card")
}

// TestConnection checks the instance health endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.domain+"/api/health", nil)
	if err != nil {
		return apperr.Internal("build metabase request").WithCause(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.ExternalService("metabase", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.ExternalService("metabase", fmt.Errorf("health status %d", resp.StatusCode))
	}
	return nil
}
