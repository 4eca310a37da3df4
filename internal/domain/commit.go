// Package domain contains the core data structures and domain logic for the application.
package domain

import "fmt"

// AuthoredDateFormat is the layout of every authored date handled by this
// application, matching the output of `git log --date=iso`.
//
// The format is fixed-width and zero-padded, so dates are compared as plain
// strings throughout. Do not switch comparisons to parsed time.Time values
// without also revisiting the cutoff-date construction in the usecase
// package, which relies on the same string ordering.
const AuthoredDateFormat = "2006-01-02 15:04:05 -0700"

// CommitRecord is a single historical commit as reported by a history source.
type CommitRecord struct {
	// Hash is the abbreviated commit identifier. It is treated as opaque.
	Hash string
	// AuthoredDate is the commit's author date in AuthoredDateFormat.
	AuthoredDate string
	// AuthorName is the author's display name and the grouping key for
	// attribution. Two identities sharing a display name are
	// indistinguishable.
	AuthorName string
}

// ContributorStat holds the aggregated statistics for one contributor.
type ContributorStat struct {
	Name           string
	LastCommitDate string
	CommitCount    int
}

// CoverageError reports that the contributors who remain after the recency
// filter never accumulate half of the repository's total commits. It is an
// expected outcome, not a crash: the pony factor is simply undefined for
// such a repository.
type CoverageError struct {
	// Achieved is the percentage of the half-of-history threshold reached
	// by the recently active contributors, rounded to two decimal places.
	Achieved float64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("recently active contributors reach only %.2f%% of the half-of-history threshold", e.Achieved)
}
