// Package remote defines the contract with the remote article service and
// provides its HTTP implementation.
//
// The engine only ever talks to the remote through the Service interface;
// tests substitute an in-memory fake. Credentials come from an opaque
// secure store the engine treats as an external capability: any failure to
// produce a token is an AUTHENTICATION error, which aborts the sync cycle.
package remote

import (
	"context"
	"errors"

	"github.com/seanmcgrath/stash/internal/model"
)

// ErrNotFound reports that the server has no entity with the requested ID.
// Callers distinguish it from other rejections with errors.Is: a delete
// answered with ErrNotFound is already acknowledged, while any other 4xx
// means the server still holds the entity and refused the request.
var ErrNotFound = errors.New("remote: not found")

// Credentials fetches the bearer token used to authenticate remote calls.
type Credentials interface {
	// Token returns a valid bearer token or an error when none is
	// available. Errors are surfaced as AUTHENTICATION failures.
	Token(ctx context.Context) (string, error)
}

// StaticCredentials is a fixed-token credential source, used by the CLI and
// by tests.
type StaticCredentials string

// Token implements Credentials.
func (c StaticCredentials) Token(context.Context) (string, error) {
	return string(c), nil
}

// ArticlePage is one page of remote changes. NextCursor marks the position
// to resume from; the orchestrator persists it only after the whole cycle
// completes without a fatal error.
type ArticlePage struct {
	Articles   []*model.Article `json:"articles"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// Service is the remote article service consumed by the sync orchestrator.
//
// Every mutating call returns the entity as the server now holds it,
// including the server-side updated_at, so the caller can reconcile
// timestamps without a follow-up read.
type Service interface {
	// ListArticlesSince returns a page of articles modified since the
	// cursor, oldest first. An empty cursor means everything. Remote
	// deletions appear as articles with deleted_at set.
	ListArticlesSince(ctx context.Context, cursor string, limit int) (*ArticlePage, error)

	// GetArticle fetches a single article by its server ID.
	GetArticle(ctx context.Context, id string) (*model.Article, error)

	// CreateArticle uploads an offline-created article. The returned copy
	// carries the server-assigned ID.
	CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error)

	// UpdateArticle uploads local changes to an existing article.
	UpdateArticle(ctx context.Context, a *model.Article) (*model.Article, error)

	// DeleteArticle propagates a local deletion.
	DeleteArticle(ctx context.Context, id string) error

	// ListLabels returns every label known to the server.
	ListLabels(ctx context.Context) ([]*model.Label, error)

	// CreateLabel uploads an offline-created label.
	CreateLabel(ctx context.Context, l *model.Label) (*model.Label, error)

	// AssignLabel attaches a label to an article on the server.
	AssignLabel(ctx context.Context, articleID, labelID string) error

	// RemoveLabel detaches a label from an article on the server.
	RemoveLabel(ctx context.Context, articleID, labelID string) error
}
