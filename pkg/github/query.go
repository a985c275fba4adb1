package github

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	loginPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)
	repoPattern  = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// ValidateLogin rejects anything that is not a plausible GitHub login (user
// or org). Logins are embedded verbatim in search expressions, so this runs
// before any query is built.
func ValidateLogin(login string) error {
	if !loginPattern.MatchString(login) {
		return fmt.Errorf("github: invalid login %q", login)
	}
	return nil
}

// ValidateRepoName rejects anything that is not a plausible repository name.
// Names are embedded in request paths, so "." and ".." are rejected too.
func ValidateRepoName(repo string) error {
	if repo == "." || repo == ".." || !repoPattern.MatchString(repo) {
		return fmt.Errorf("github: invalid repository name %q", repo)
	}
	return nil
}

// searchQuery assembles a search expression with qualifiers in a fixed
// order (type, org, author, reviewed-by, is, date windows) so the exact
// string sent upstream stays auditable.
type searchQuery struct {
	org        string
	author     string
	reviewedBy string
	is         string

	createdSince time.Time
	createdUntil time.Time
	mergedSince  time.Time
	mergedUntil  time.Time
}

func (q searchQuery) String() string {
	parts := []string{"type:pr"}
	if q.org != "" {
		parts = append(parts, "org:"+q.org)
	}
	if q.author != "" {
		parts = append(parts, "author:"+q.author)
	}
	if q.reviewedBy != "" {
		parts = append(parts, "reviewed-by:"+q.reviewedBy)
	}
	if q.is != "" {
		parts = append(parts, "is:"+q.is)
	}
	if !q.createdSince.IsZero() {
		parts = append(parts, dateWindow("created", q.createdSince, q.createdUntil))
	}
	if !q.mergedSince.IsZero() {
		parts = append(parts, dateWindow("merged", q.mergedSince, q.mergedUntil))
	}
	return strings.Join(parts, " ")
}

// dateWindow renders "qualifier:start..end", or "qualifier:>=start" when the
// window is open-ended.
func dateWindow(qualifier string, since, until time.Time) string {
	if until.IsZero() {
		return fmt.Sprintf("%s:>=%s", qualifier, since.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s:%s..%s", qualifier, since.Format("2006-01-02"), until.Format("2006-01-02"))
}
