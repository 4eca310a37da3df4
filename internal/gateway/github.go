package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/oss-metrics/ponyfactor/internal/domain"
)

// GitHubSource implements HistorySource against the GitHub API, so the pony
// factor of a public repository can be computed without cloning it. The
// REST client validates that the repository exists; the GraphQL client
// walks the default branch's commit history.
type GitHubSource struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// commitHistoryQuery pages through the commit history of the repository's
// default branch.
type commitHistoryQuery struct {
	Repository struct {
		DefaultBranchRef struct {
			Target struct {
				Commit struct {
					History struct {
						PageInfo struct {
							HasNextPage bool
							EndCursor   githubv4.String
						}
						Nodes []struct {
							AbbreviatedOid string
							AuthoredDate   githubv4.DateTime
							Author         struct {
								Name string
							}
						}
					} `graphql:"history(first: 100, after: $cursor)"`
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubSource is a constructor that creates a new instance of GitHubSource.
// An empty token yields an anonymous client, which works for public
// repositories at a lower rate limit.
func NewGitHubSource(token string, logger *log.Logger) (*GitHubSource, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{Transport: rateLimitWaiter}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient.Transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		}
	}
	return &GitHubSource{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchRemote validates the `owner/repo` location with the REST API and
// returns it unchanged. Nothing is materialized on disk, so there is no
// cleanup function.
func (s *GitHubSource) FetchRemote(ctx context.Context, location string) (string, func() error, error) {
	owner, name, err := splitLocation(location)
	if err != nil {
		return "", nil, err
	}
	s.logger.Printf("Validating %s via REST API...", location)
	if _, _, err := s.restClient.Repositories.Get(ctx, owner, name); err != nil {
		return "", nil, fmt.Errorf("failed to fetch repository %s: %w", location, err)
	}
	return location, nil, nil
}

// ListCommits pages through the default branch's history with the GraphQL
// API, converting each node into a CommitRecord. Authored dates are
// rendered in UTC so every record shares the fixed-width date format.
func (s *GitHubSource) ListCommits(ctx context.Context, location string) ([]domain.CommitRecord, error) {
	owner, name, err := splitLocation(location)
	if err != nil {
		return nil, err
	}

	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"cursor": (*githubv4.String)(nil),
	}

	var records []domain.CommitRecord
	for {
		var q commitHistoryQuery
		if err := s.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for commit history: %w", err)
		}

		history := q.Repository.DefaultBranchRef.Target.Commit.History
		for _, node := range history.Nodes {
			records = append(records, domain.CommitRecord{
				Hash:         node.AbbreviatedOid,
				AuthoredDate: node.AuthoredDate.Time.UTC().Format(domain.AuthoredDateFormat),
				AuthorName:   node.Author.Name,
			})
		}

		if !history.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(history.PageInfo.EndCursor)
		s.logger.Println("  Fetching next page of commit history...")
	}
	s.logger.Printf("Completed fetching commit history for %s.\n", location)
	return records, nil
}

func splitLocation(location string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(location, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository location %q, want owner/repo", location)
	}
	return owner, name, nil
}
