package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seanmcgrath/stash/internal/errs"
	"github.com/seanmcgrath/stash/internal/model"
)

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
}

// NewClient creates an HTTP remote client. A nil httpClient uses a default
// with a 30 second timeout.
func NewClient(baseURL string, creds Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient, creds: creds}
}

// ListArticlesSince implements Service.
func (c *Client) ListArticlesSince(ctx context.Context, cursor string, limit int) (*ArticlePage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("since", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/articles"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page ArticlePage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetArticle implements Service.
func (c *Client) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	var a model.Article
	if err := c.do(ctx, http.MethodGet, "/api/articles/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateArticle implements Service.
func (c *Client) CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	var created model.Article
	if err := c.do(ctx, http.MethodPost, "/api/articles", a, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateArticle implements Service.
func (c *Client) UpdateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	var updated model.Article
	if err := c.do(ctx, http.MethodPut, "/api/articles/"+url.PathEscape(a.ID), a, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteArticle implements Service.
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/articles/"+url.PathEscape(id), nil, nil)
}

// ListLabels implements Service.
func (c *Client) ListLabels(ctx context.Context) ([]*model.Label, error) {
	var out struct {
		Labels []*model.Label `json:"labels"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/labels", nil, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// CreateLabel implements Service.
func (c *Client) CreateLabel(ctx context.Context, l *model.Label) (*model.Label, error) {
	var created model.Label
	if err := c.do(ctx, http.MethodPost, "/api/labels", l, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AssignLabel implements Service.
func (c *Client) AssignLabel(ctx context.Context, articleID, labelID string) error {
	path := "/api/articles/" + url.PathEscape(articleID) + "/labels/" + url.PathEscape(labelID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// RemoveLabel implements Service.
func (c *Client) RemoveLabel(ctx context.Context, articleID, labelID string) error {
	path := "/api/articles/" + url.PathEscape(articleID) + "/labels/" + url.PathEscape(labelID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends one authenticated request and decodes the response into out
// (which may be nil for calls with no body).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return errs.AuthErr("failed to obtain token", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.RuntimeErr("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errs.RuntimeErr("failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NetworkErr(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(method, path, resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.SyncErr("failed to decode response body", err)
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the error taxonomy. Anything
// in the 2xx range is an acknowledgment.
func classifyStatus(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := fmt.Sprintf("%s %s returned %s", method, path, resp.Status)
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var cause error
	if len(snippet) > 0 {
		cause = fmt.Errorf("%s", snippet)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.AuthErr(msg, cause)
	case resp.StatusCode == http.StatusNotFound:
		if cause != nil {
			cause = fmt.Errorf("%w: %v", ErrNotFound, cause)
		} else {
			cause = ErrNotFound
		}
		return errs.ValidationErr(msg, cause)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return errs.NetworkErr(msg, cause)
	case resp.StatusCode >= 500:
		return errs.NetworkErr(msg, cause)
	default:
		return errs.ValidationErr(msg, cause)
	}
}
