package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultLimit is the source count requested when the caller passes 0.
const DefaultLimit = 5

// Client talks to the Lens API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource // nil when bot verification is not configured
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource enables bot verification on mutating requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a Client targeting the given Lens API base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, verifyToken string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if verifyToken != "" {
		req.Header.Set(VerificationHeader, verifyToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// postVerified issues a mutating request carrying the verification token
// when a source is configured. A configured source that cannot supply a
// token is a local precondition failure: no request is issued. A consumed
// token is invalidated on success and on 403 so the next submission must
// re-verify.
func (c *Client) postVerified(ctx context.Context, path string, body, out any) error {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("verification token: %w", err)
		}
		if t == "" {
			return ErrVerificationRequired
		}
		token = t
	}

	resp, err := c.do(ctx, http.MethodPost, path, body, token)
	if err != nil {
		return err
	}

	err = decodeJSON(resp, out)
	if c.tokens != nil && (err == nil || IsVerificationFailed(err)) {
		c.tokens.Invalidate()
	}
	return err
}

// detailBody is the FastAPI-style error envelope.
type detailBody struct {
	Detail string `json:"detail"`
}

// decodeJSON maps non-2xx responses to *APIError, extracting the server's
// detail message when present, and decodes success bodies into out.
// Pass nil out to discard the body.
func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var detail detailBody
		if data, err := io.ReadAll(resp.Body); err == nil {
			json.Unmarshal(data, &detail)
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SearchWithAnswer submits one conversational query and returns the
// synthesized answer with its sources and server-authoritative counters.
func (c *Client) SearchWithAnswer(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var result SearchResponse
	if err := c.postVerified(ctx, "/search-with-answer", searchRequest{Query: query, Limit: limit}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type compareRequest struct {
	Guest1 string `json:"guest1"`
	Guest2 string `json:"guest2"`
	Topic  string `json:"topic"`
	Limit  int    `json:"limit"`
}

// Compare asks the server to contrast two guests on a topic. A 404 means
// one of the guests is not present among the indexed content.
func (c *Client) Compare(ctx context.Context, guest1, guest2, topic string, limit int) (*CompareResponse, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var result CompareResponse
	req := compareRequest{Guest1: guest1, Guest2: guest2, Topic: topic, Limit: limit}
	if err := c.postVerified(ctx, "/compare", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearConversation resets the server-side conversation session.
func (c *Client) ClearConversation(ctx context.Context) error {
	return c.postVerified(ctx, "/clear-conversation", struct{}{}, nil)
}

// Guests returns every guest with indexed content.
func (c *Client) Guests(ctx context.Context) ([]Guest, error) {
	var result guestsResponse
	if err := c.get(ctx, "/guests", &result); err != nil {
		return nil, err
	}
	return result.Guests, nil
}

// EpisodeGuides lists episode action guides. sortBy is passed through to
// the server ("views", "actions", ...); zero limit defers to the server.
func (c *Client) EpisodeGuides(ctx context.Context, sortBy string, limit int) ([]Guide, error) {
	q := url.Values{}
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/episode-guides"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result guidesResponse
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Guides, nil
}

// EpisodeGuide returns the full detail for one guide.
func (c *Client) EpisodeGuide(ctx context.Context, id int) (*GuideDetail, error) {
	var result GuideDetail
	if err := c.get(ctx, "/episode-guides/"+strconv.Itoa(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TrendingQuestions returns the most common recent queries.
func (c *Client) TrendingQuestions(ctx context.Context, days, limit int) ([]TrendingItem, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/trending-questions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result trendingResponse
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Trending, nil
}

// Stats returns corpus-wide counts.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var result Stats
	if err := c.get(ctx, "/stats", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health returns nil if the API and its database are reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}
