// Package content talks to the remote content API and turns its posts, the
// documentation list and the static fallback into sitemap entries.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dacars/sitemapd/internal/models"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrUnusablePayload  = errors.New("unusable payload")
)

// BlogPostParams is the query sent to the blog posts endpoint.
type BlogPostParams struct {
	Status string
	Sort   string
	Limit  int
	Fields []string
}

func (p BlogPostParams) values() url.Values {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(p.Fields) > 0 {
		q.Set("fields", strings.Join(p.Fields, ","))
	}
	return q
}

// Client is a minimal REST client for the content backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetBlogPosts lists posts matching params.
func (c *Client) GetBlogPosts(ctx context.Context, params BlogPostParams) ([]models.BlogPost, error) {
	endpoint := c.baseURL + "/blog-posts"
	if q := params.values().Encode(); q != "" {
		endpoint += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get blog posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("get blog posts: %w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blog posts: %w", err)
	}

	items, err := ExtractList(body)
	if err != nil {
		return nil, err
	}
	posts := make([]models.BlogPost, 0, len(items))
	for i, raw := range items {
		var p models.BlogPost
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrUnusablePayload, i, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

var listKeys = []string{"data", "items", "results", "posts"}

// ExtractList finds the record array in a list response. It accepts a bare
// array or an envelope object keyed by data/items/results/posts, with one
// extra level of "data" nesting (e.g. {"data": {"data": [...]}}).
func ExtractList(body []byte) ([]json.RawMessage, error) {
	return extractList(body, 0)
}

func extractList(body []byte, depth int) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnusablePayload)
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnusablePayload, err)
		}
		return items, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnusablePayload, err)
		}
		for _, key := range listKeys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			trimmed := bytes.TrimSpace(raw)
			if len(trimmed) > 0 && trimmed[0] == '[' {
				return extractList(trimmed, depth)
			}
			if key == "data" && depth == 0 && len(trimmed) > 0 && trimmed[0] == '{' {
				return extractList(trimmed, depth+1)
			}
		}
		return nil, fmt.Errorf("%w: no list field in object", ErrUnusablePayload)
	default:
		return nil, fmt.Errorf("%w: not a list or object", ErrUnusablePayload)
	}
}
