package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key identifies a pull request across repositories. Repo is the bare
// repository name; the owning org is fixed per client.
type Key struct {
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Repo, k.Number)
}

// PullRequest is a pull request as surfaced by the search API.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Repo      string     `json:"repo"`
	State     string     `json:"state"`
	Author    string     `json:"author"`
	Draft     bool       `json:"draft"`
	Merged    bool       `json:"merged"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Key returns the batch key for this pull request.
func (pr PullRequest) Key() Key {
	return Key{Repo: pr.Repo, Number: pr.Number}
}

// Review is a code review. Search-derived reviews carry state "REVIEWED", a
// submitted-at taken from the PR's creation date (the search API cannot
// filter on review date), and the PR's author; reviews listed directly on a
// PR carry the real state and timestamp instead.
type Review struct {
	PRNumber    int        `json:"pr_number"`
	PRTitle     string     `json:"pr_title,omitempty"`
	Repo        string     `json:"repo"`
	State       string     `json:"state"`
	Author      string     `json:"author"`
	PRAuthor    string     `json:"pr_author,omitempty"`
	URL         string     `json:"url"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// PRStats holds the size counters from the pulls endpoint.
type PRStats struct {
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changed_files"`
	Commits      int `json:"commits"`
}

// FileChange is one changed file in a pull request.
type FileChange struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// TimelineEvent is one issue timeline entry, used to compute review
// turnaround (review_requested vs reviewed events).
type TimelineEvent struct {
	Event     string     `json:"event"`
	Actor     string     `json:"actor"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Turnaround pairs a PR's timeline with its reviews for turnaround analysis.
type Turnaround struct {
	Timeline []TimelineEvent `json:"timeline"`
	Reviews  []Review        `json:"reviews"`
}

// Wire shapes.

type searchResponse struct {
	TotalCount int               `json:"total_count"`
	Items      []json.RawMessage `json:"items"`
}

type searchItem struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	State         string `json:"state"`
	Draft         bool   `json:"draft"`
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	CreatedAt     string `json:"created_at"`
	ClosedAt      string `json:"closed_at"`
	User          struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest struct {
		URL      string `json:"url"`
		MergedAt string `json:"merged_at"`
	} `json:"pull_request"`
}

type reviewItem struct {
	State       string `json:"state"`
	HTMLURL     string `json:"html_url"`
	SubmittedAt string `json:"submitted_at"`
	User        struct {
		Login string `json:"login"`
	} `json:"user"`
}

type timelineItem struct {
	Event     string `json:"event"`
	CreatedAt string `json:"created_at"`
	Actor     struct {
		Login string `json:"login"`
	} `json:"actor"`
}

// repoFromURL extracts the repository name from an API URL like
// https://api.github.com/repos/acme/widget.
func repoFromURL(u string) string {
	const marker = "/repos/"
	i := strings.Index(u, marker)
	if i < 0 {
		return ""
	}
	parts := strings.SplitN(u[i+len(marker):], "/", 3)
	if len(parts) < 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}
