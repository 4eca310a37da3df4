package gateway

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/oss-metrics/ponyfactor/internal/domain"
)

// logLinePattern matches one line of `git log --pretty=format:%h %ad %an
// --date=iso`: an abbreviated hex hash, a date+time+offset triplet, and the
// author name captured greedily to end of line (names may contain spaces).
var logLinePattern = regexp.MustCompile(
	`^(?P<hash>[0-9a-f]+)\s+(?P<date>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} [+-]\d{4})\s+(?P<name>.+)$`,
)

// GitSource is the concrete implementation of HistorySource backed by the
// git command-line tool. Remote repositories are cloned into a temporary
// working copy first.
type GitSource struct {
	baseURL string
	logger  *log.Logger
}

// NewGitSource creates a GitSource that clones from github.com.
func NewGitSource(logger *log.Logger) *GitSource {
	return &GitSource{
		baseURL: "https://github.com",
		logger:  logger,
	}
}

// FetchRemote clones `owner/repo` into a fresh temporary directory and
// returns its path together with a cleanup function that removes it. A
// failed clone is fatal for the run; the partially created directory is
// still removed before the error is returned.
func (s *GitSource) FetchRemote(ctx context.Context, location string) (string, func() error, error) {
	dir, err := os.MkdirTemp("", "ponyfactor-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(dir) }

	url := s.cloneURL(location)
	s.logger.Printf("Cloning %s into %s...", url, dir)
	if _, err := s.call(ctx, "", "clone", "--quiet", url, dir); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone %s: %w", location, err)
	}
	return dir, cleanup, nil
}

// ListCommits reads the full commit history of the working copy at
// localPath, one commit per line. A line that does not match
// logLinePattern violates the output contract and aborts the run.
func (s *GitSource) ListCommits(ctx context.Context, localPath string) ([]domain.CommitRecord, error) {
	out, err := s.call(ctx, localPath, "log", "--pretty=format:%h %ad %an", "--date=iso")
	if err != nil {
		return nil, fmt.Errorf("failed to read commit history: %w", err)
	}
	return parseLog(bytes.NewReader(out))
}

func (s *GitSource) cloneURL(location string) string {
	return fmt.Sprintf("%s/%s.git", s.baseURL, location)
}

// call runs a git subcommand, capturing stderr into the error message on a
// non-zero exit.
func (s *GitSource) call(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %s (%w)", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

func parseLog(r io.Reader) ([]domain.CommitRecord, error) {
	var records []domain.CommitRecord

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		m := logLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("malformed history line: %q", line)
		}
		records = append(records, domain.CommitRecord{
			Hash:         m[1],
			AuthoredDate: m[2],
			AuthorName:   m[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error while scanning git log output: %w", err)
	}
	return records, nil
}
