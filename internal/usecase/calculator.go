// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/oss-metrics/ponyfactor/internal/domain"
	"github.com/oss-metrics/ponyfactor/internal/gateway"
)

// Calculator is the use case for computing a repository's pony factor: the
// minimal set of contributors whose combined, recency-filtered commit
// counts account for at least half of all historical commits.
type Calculator struct {
	source gateway.HistorySource
	logger *log.Logger
	now    func() time.Time
}

// NewCalculator creates a new Calculator instance.
func NewCalculator(source gateway.HistorySource, logger *log.Logger) *Calculator {
	return &Calculator{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Calculate performs the main business logic.
//
// When fromDirectory is true, location is an existing local working copy.
// Otherwise it is an `owner/repo` identifier handed to the history source,
// whose working copy (if any) is released once extraction completes,
// success or failure.
//
// On success it returns the covering set in selection order. When the
// recency filter leaves too little history to reach the threshold, the
// returned error is a *domain.CoverageError.
func (c *Calculator) Calculate(ctx context.Context, location string, fromDirectory bool) ([]domain.ContributorStat, error) {
	localPath := location
	if !fromDirectory {
		path, cleanup, err := c.source.FetchRemote(ctx, location)
		if err != nil {
			return nil, err
		}
		if cleanup != nil {
			defer func() {
				if cerr := cleanup(); cerr != nil {
					c.logger.Printf("Failed to remove working copy: %v", cerr)
				}
			}()
		}
		localPath = path
	}

	records, err := c.source.ListCommits(ctx, localPath)
	if err != nil {
		return nil, err
	}
	total := len(records)
	c.logger.Printf("Usecase: aggregating %d commits...", total)

	ranked := Rank(Aggregate(records))
	active := filterActive(ranked, cutoffDate(c.now().UTC()))
	return coveringSet(active, total)
}

// Aggregate folds commit records into per-contributor statistics keyed by
// author name, in a single pass. The sum of CommitCount over the result
// always equals len(records).
//
// Dates compare as plain strings; see domain.AuthoredDateFormat.
func Aggregate(records []domain.CommitRecord) map[string]domain.ContributorStat {
	contributors := make(map[string]domain.ContributorStat)
	for _, r := range records {
		stat, ok := contributors[r.AuthorName]
		if !ok {
			stat.Name = r.AuthorName
		}
		stat.CommitCount++
		if r.AuthoredDate > stat.LastCommitDate {
			stat.LastCommitDate = r.AuthoredDate
		}
		contributors[r.AuthorName] = stat
	}
	return contributors
}

// Rank orders contributors by descending commit count. Equal counts go to
// the more recently active contributor, then to name order; the tie-break
// is our own rule, chosen so that map iteration order never leaks into the
// output.
func Rank(contributors map[string]domain.ContributorStat) []domain.ContributorStat {
	ranked := make([]domain.ContributorStat, 0, len(contributors))
	for _, stat := range contributors {
		ranked = append(ranked, stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CommitCount != ranked[j].CommitCount {
			return ranked[i].CommitCount > ranked[j].CommitCount
		}
		if ranked[i].LastCommitDate != ranked[j].LastCommitDate {
			return ranked[i].LastCommitDate > ranked[j].LastCommitDate
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// cutoffDate returns the recency cutoff as a `YYYY-MM-DD` string: the same
// calendar day one year before now. It is built from date components
// rather than AddDate so that Feb 29 stays Feb 29; the result only ever
// needs to order correctly as a string, not to be a valid date.
func cutoffDate(now time.Time) string {
	year, month, day := now.Date()
	return fmt.Sprintf("%04d-%02d-%02d", year-1, int(month), day)
}

// filterActive keeps contributors whose last commit is strictly more recent
// than the cutoff. The date-only cutoff sorts before any full timestamp of
// the same day, so the string comparison is a strict "within the last
// year".
func filterActive(ranked []domain.ContributorStat, cutoff string) []domain.ContributorStat {
	active := make([]domain.ContributorStat, 0, len(ranked))
	for _, stat := range ranked {
		if stat.LastCommitDate > cutoff {
			active = append(active, stat)
		}
	}
	return active
}

// coveringSet accumulates contributors in rank order until their combined
// commit count reaches half of the original total. An empty history covers
// its zero threshold immediately, yielding an empty successful result.
func coveringSet(active []domain.ContributorStat, total int) ([]domain.ContributorStat, error) {
	threshold := float64(total) * 0.5

	covering := make([]domain.ContributorStat, 0, len(active))
	sum := 0
	for _, stat := range active {
		if float64(sum) >= threshold {
			break
		}
		covering = append(covering, stat)
		sum += stat.CommitCount
	}
	if float64(sum) >= threshold {
		return covering, nil
	}

	achieved, err := stats.Round(float64(sum)/threshold*100, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to round achieved coverage: %w", err)
	}
	return nil, &domain.CoverageError{Achieved: achieved}
}
