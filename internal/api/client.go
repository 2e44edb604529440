package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies the bearer credential. The client treats it as an
// opaque credential provider.
type TokenSource interface {
	// Token returns the current session token.
	Token() (string, error)

	// Authenticated reports whether a usable session exists.
	Authenticated() bool
}

// Client talks to the verse/progress REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New creates a Client for the given base URL.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

// SetHTTPClient replaces the underlying HTTP client (tests).
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// ListVerses returns all verses owned by the user.
func (c *Client) ListVerses(ctx context.Context) ([]Verse, error) {
	var verses []Verse
	if err := c.do(ctx, http.MethodGet, "/verses", nil, &verses); err != nil {
		return nil, fmt.Errorf("list verses: %w", err)
	}
	return verses, nil
}

// CreateVerse adds a new verse.
func (c *Client) CreateVerse(ctx context.Context, v Verse) error {
	if err := c.do(ctx, http.MethodPost, "/verses", v, nil); err != nil {
		return fmt.Errorf("create verse %s: %w", v.Reference, err)
	}
	return nil
}

// UpdateVerse applies a partial update to the verse.
func (c *Client) UpdateVerse(ctx context.Context, reference string, upd VerseUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/verses/"+url.PathEscape(reference), upd, nil); err != nil {
		return fmt.Errorf("update verse %s: %w", reference, err)
	}
	return nil
}

// DeleteVerse removes the verse.
func (c *Client) DeleteVerse(ctx context.Context, reference string) error {
	if err := c.do(ctx, http.MethodDelete, "/verses/"+url.PathEscape(reference), nil, nil); err != nil {
		return fmt.Errorf("delete verse %s: %w", reference, err)
	}
	return nil
}

// PostWordProgress reports one word-level attempt event.
func (c *Client) PostWordProgress(ctx context.Context, ev WordProgress) error {
	if err := c.do(ctx, http.MethodPost, "/progress/word", ev, nil); err != nil {
		return fmt.Errorf("post word progress: %w", err)
	}
	return nil
}

// PostVerseAttempt submits a mastery attempt.
func (c *Client) PostVerseAttempt(ctx context.Context, attempt VerseAttempt) (AttemptResult, error) {
	var result AttemptResult
	if err := c.do(ctx, http.MethodPost, "/progress/verse", attempt, &result); err != nil {
		return AttemptResult{}, fmt.Errorf("post verse attempt: %w", err)
	}
	return result, nil
}

// GetMasteryProgress fetches the authoritative mastery state for a verse.
func (c *Client) GetMasteryProgress(ctx context.Context, reference string) (MasteryProgress, error) {
	var mp MasteryProgress
	if err := c.do(ctx, http.MethodGet, "/progress/mastery/"+url.PathEscape(reference), nil, &mp); err != nil {
		return MasteryProgress{}, fmt.Errorf("get mastery progress: %w", err)
	}
	return mp, nil
}

// GetStats fetches the aggregate gamification stats.
func (c *Client) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/gamification/stats", nil, &stats); err != nil {
		return Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// PostPointsEvent writes a generic point/metadata event.
func (c *Client) PostPointsEvent(ctx context.Context, ev PointsEvent) error {
	if err := c.do(ctx, http.MethodPost, "/gamification/points", ev, nil); err != nil {
		return fmt.Errorf("post points event: %w", err)
	}
	return nil
}

// GetServerInfo fetches the server's version metadata.
func (c *Client) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, "/meta/version", nil, &info); err != nil {
		return ServerInfo{}, fmt.Errorf("get server info: %w", err)
	}
	return info, nil
}

// do issues one request and normalizes the outcome: network failures become
// TransientError, non-2xx statuses are classified by code and error body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errBody)
		return classify(resp.StatusCode, errBody.Error)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
