// Package gateway provides access to repository commit history,
// abstracting away whether it comes from the git CLI or the GitHub API.
package gateway

import (
	"context"

	"github.com/oss-metrics/ponyfactor/internal/domain"
)

// HistorySource defines the behavior of a gateway that yields the commit
// history of a repository.
type HistorySource interface {
	// FetchRemote resolves an `owner/repo` location into a local path that
	// ListCommits accepts. Sources that materialize anything on disk return
	// a cleanup function that releases it; sources that don't return nil.
	// The caller must run a non-nil cleanup exactly once, on every exit
	// path, once history extraction has completed.
	FetchRemote(ctx context.Context, location string) (localPath string, cleanup func() error, err error)

	// ListCommits returns every commit reachable from the repository head.
	// Order is not significant to callers.
	ListCommits(ctx context.Context, localPath string) ([]domain.CommitRecord, error)
}
