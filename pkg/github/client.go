// Package github provides the GitHub REST and Search client used to gather
// pull request and review activity for an engineer or a team.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/pkg/batch"
	"github.com/workpulse/workpulse/pkg/cache"
	"github.com/workpulse/workpulse/pkg/logging"
	"github.com/workpulse/workpulse/pkg/pagination"
	"github.com/workpulse/workpulse/pkg/ratelimit"
	"github.com/workpulse/workpulse/pkg/request"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	searchPageSize = 100
	listPageSize   = 100

	batchWorkers = 10
	batchTimeout = 60 * time.Second

	timelineAccept = "application/vnd.github.mockingbird-preview+json"
	diffAccept     = "application/vnd.github.v3.diff"
)

// Config holds GitHub client configuration.
type Config struct {
	// Token is a personal access token with repo read scope.
	Token string

	// Org scopes every search and owns every repository path.
	Org string

	// BaseURL overrides the API host, for tests.
	BaseURL string

	// CacheTTL for GET responses (default 5m, negative disables).
	CacheTTL time.Duration

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client talks to the GitHub REST and Search APIs. It is safe for
// concurrent use.
type Client struct {
	org    string
	exec   *request.Executor
	pool   *batch.Pool
	logger zerolog.Logger

	closeOnce sync.Once
}

// NewClient validates the configuration and builds a client with its own
// cache, rate-limit tracking, and batch worker pool.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if cfg.Org == "" {
		return nil, fmt.Errorf("github: org is required")
	}
	if err := ValidateLogin(cfg.Org); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	logger := logging.NewLogger("github")
	token := cfg.Token

	exec, err := request.New(request.Config{
		Provider:   "github",
		BaseURL:    baseURL,
		Policy:     request.PolicyPrimaryWindow,
		Cache:      cache.New(ttl),
		HTTPClient: cfg.HTTPClient,
		Logger:     &logger,
		Authorize: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("X-GitHub-Api-Version", apiVersion)
			req.Header.Set("Accept", "application/vnd.github+json")
		},
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		org:    cfg.Org,
		exec:   exec,
		pool:   batch.NewPool(batchWorkers),
		logger: logger,
	}, nil
}

// Org returns the org every query is scoped to.
func (c *Client) Org() string {
	return c.org
}

// CacheStats reports the response cache counters.
func (c *Client) CacheStats() cache.Stats {
	return c.exec.Cache().Stats()
}

// RateLimit reports the last observed primary window state.
func (c *Client) RateLimit() ratelimit.State {
	return c.exec.RateLimit()
}

// Close drains the batch pool, releases idle connections, and clears the
// cache. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.pool.Close()
		c.exec.Close()
	})
}

// CurrentUser returns the login the token authenticates as. The call is
// never cached so it always verifies live credentials.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var payload struct {
		Login string `json:"login"`
	}
	if err := c.exec.DoJSON(ctx, request.Options{Path: "/user"}, &payload); err != nil {
		return "", err
	}
	return payload.Login, nil
}

// SearchPullRequests returns PRs authored by author, filtered by creation
// date.
func (c *Client) SearchPullRequests(ctx context.Context, author string, since, until time.Time) ([]PullRequest, error) {
	if err := ValidateLogin(author); err != nil {
		return nil, err
	}
	return c.searchPullRequests(ctx, searchQuery{
		org:          c.org,
		author:       author,
		createdSince: since,
		createdUntil: until,
	})
}

// SearchMergedPullRequests returns PRs authored by author, filtered by merge
// date. PRs created before since but merged inside the window are included;
// every result is guaranteed merged.
func (c *Client) SearchMergedPullRequests(ctx context.Context, author string, since, until time.Time) ([]PullRequest, error) {
	if err := ValidateLogin(author); err != nil {
		return nil, err
	}
	return c.searchPullRequests(ctx, searchQuery{
		org:         c.org,
		author:      author,
		is:          "merged",
		mergedSince: since,
		mergedUntil: until,
	})
}

// SearchOpenPullRequests returns the author's currently open PRs.
func (c *Client) SearchOpenPullRequests(ctx context.Context, author string) ([]PullRequest, error) {
	if err := ValidateLogin(author); err != nil {
		return nil, err
	}
	return c.searchPullRequests(ctx, searchQuery{
		org:    c.org,
		author: author,
		is:     "open",
	})
}

// SearchReviewsByUser returns PRs the reviewer has reviewed, one Review per
// PR, deduplicated by the PR's API URL. The search window filters on PR
// creation date: reviews on PRs created before since will not appear even
// when the review itself falls inside the window.
func (c *Client) SearchReviewsByUser(ctx context.Context, reviewer string, since, until time.Time) ([]Review, error) {
	if err := ValidateLogin(reviewer); err != nil {
		return nil, err
	}

	items, err := c.searchItems(ctx, searchQuery{
		org:          c.org,
		reviewedBy:   reviewer,
		createdSince: since,
		createdUntil: until,
	})
	if err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, raw := range items {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Warn().Err(err).Msg("Skipping unparseable search item")
			continue
		}
		if item.PullRequest.URL == "" {
			continue
		}
		if _, dup := seen[item.PullRequest.URL]; dup {
			continue
		}
		seen[item.PullRequest.URL] = struct{}{}

		reviews = append(reviews, Review{
			PRNumber:    item.Number,
			PRTitle:     item.Title,
			Repo:        repoFromURL(item.RepositoryURL),
			State:       "REVIEWED",
			Author:      reviewer,
			PRAuthor:    item.User.Login,
			URL:         item.HTMLURL,
			SubmittedAt: c.parseTime(item.CreatedAt, "created_at"),
		})
	}
	return reviews, nil
}

// GetPullRequest returns the size counters for one PR.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (PRStats, error) {
	if err := ValidateRepoName(repo); err != nil {
		return PRStats{}, err
	}

	var stats PRStats
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.org, repo, number)
	if err := c.exec.GetJSON(ctx, path, nil, &stats); err != nil {
		return PRStats{}, err
	}
	return stats, nil
}

// GetPullRequestFiles returns the changed files of one PR.
func (c *Client) GetPullRequestFiles(ctx context.Context, repo string, number int) ([]FileChange, error) {
	if err := ValidateRepoName(repo); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files", c.org, repo, number)
	items, err := c.listPages(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	files := make([]FileChange, 0, len(items))
	for _, raw := range items {
		var f FileChange
		if err := json.Unmarshal(raw, &f); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Skipping unparseable file entry")
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// GetPullRequestReviews returns the reviews submitted on one PR.
func (c *Client) GetPullRequestReviews(ctx context.Context, repo string, number int) ([]Review, error) {
	if err := ValidateRepoName(repo); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", c.org, repo, number)
	items, err := c.listPages(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, len(items))
	for _, raw := range items {
		var item reviewItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Skipping unparseable review")
			continue
		}
		reviews = append(reviews, Review{
			PRNumber:    number,
			Repo:        repo,
			State:       item.State,
			Author:      item.User.Login,
			URL:         item.HTMLURL,
			SubmittedAt: c.parseTime(item.SubmittedAt, "submitted_at"),
		})
	}
	return reviews, nil
}

// GetPullRequestTimeline returns the issue timeline of one PR. The timeline
// API needs a preview Accept header for full event details.
func (c *Client) GetPullRequestTimeline(ctx context.Context, repo string, number int) ([]TimelineEvent, error) {
	if err := ValidateRepoName(repo); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d/timeline", c.org, repo, number)
	items, err := c.listPages(ctx, path, http.Header{"Accept": {timelineAccept}})
	if err != nil {
		return nil, err
	}

	events := make([]TimelineEvent, 0, len(items))
	for _, raw := range items {
		var item timelineItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Skipping unparseable timeline event")
			continue
		}
		events = append(events, TimelineEvent{
			Event:     item.Event,
			Actor:     item.Actor.Login,
			CreatedAt: c.parseTime(item.CreatedAt, "created_at"),
		})
	}
	return events, nil
}

// GetPullRequestDiff returns the PR's unified diff as text. Diffs are large
// and bypass the response cache.
func (c *Client) GetPullRequestDiff(ctx context.Context, repo string, number int) (string, error) {
	if err := ValidateRepoName(repo); err != nil {
		return "", err
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.org, repo, number)
	payload, err := c.exec.GetRaw(ctx, path, nil, http.Header{"Accept": {diffAccept}})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// BatchStats fetches size counters for many PRs in parallel. Missing keys
// mean the item was unavailable, never an error.
func (c *Client) BatchStats(ctx context.Context, keys []Key) map[Key]PRStats {
	return batch.Run(ctx, c.pool, keys, batchTimeout, func(ctx context.Context, k Key) (PRStats, error) {
		return c.GetPullRequest(ctx, k.Repo, k.Number)
	})
}

// BatchFiles fetches changed-file lists for many PRs in parallel.
func (c *Client) BatchFiles(ctx context.Context, keys []Key) map[Key][]FileChange {
	return batch.Run(ctx, c.pool, keys, batchTimeout, func(ctx context.Context, k Key) ([]FileChange, error) {
		return c.GetPullRequestFiles(ctx, k.Repo, k.Number)
	})
}

// BatchReviews fetches review lists for many PRs in parallel.
func (c *Client) BatchReviews(ctx context.Context, keys []Key) map[Key][]Review {
	return batch.Run(ctx, c.pool, keys, batchTimeout, func(ctx context.Context, k Key) ([]Review, error) {
		return c.GetPullRequestReviews(ctx, k.Repo, k.Number)
	})
}

// BatchTimelines fetches timeline and review pairs for many PRs in
// parallel, the inputs for review turnaround calculation.
func (c *Client) BatchTimelines(ctx context.Context, keys []Key) map[Key]Turnaround {
	return batch.Run(ctx, c.pool, keys, batchTimeout, func(ctx context.Context, k Key) (Turnaround, error) {
		timeline, err := c.GetPullRequestTimeline(ctx, k.Repo, k.Number)
		if err != nil {
			return Turnaround{}, err
		}
		reviews, err := c.GetPullRequestReviews(ctx, k.Repo, k.Number)
		if err != nil {
			return Turnaround{}, err
		}
		return Turnaround{Timeline: timeline, Reviews: reviews}, nil
	})
}

// searchPullRequests runs a search and parses each item, skipping records
// that fail to parse.
func (c *Client) searchPullRequests(ctx context.Context, q searchQuery) ([]PullRequest, error) {
	items, err := c.searchItems(ctx, q)
	if err != nil {
		return nil, err
	}

	prs := make([]PullRequest, 0, len(items))
	for _, raw := range items {
		pr, err := c.parsePullRequest(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping unparseable search item")
			continue
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// searchItems pages through /search/issues. The search API reports
// total_count, so pagination stops once page*per_page covers it.
func (c *Client) searchItems(ctx context.Context, q searchQuery) ([]json.RawMessage, error) {
	query := q.String()
	return pagination.Offset(ctx, pagination.OffsetConfig{
		PageSize: searchPageSize,
		Fetch: func(ctx context.Context, start, limit int) (pagination.Page, error) {
			params := url.Values{
				"q":        {query},
				"per_page": {strconv.Itoa(limit)},
				"page":     {strconv.Itoa(start/limit + 1)},
			}
			var result searchResponse
			if err := c.exec.GetJSON(ctx, "/search/issues", params, &result); err != nil {
				return pagination.Page{}, err
			}
			return pagination.Page{Items: result.Items, Total: result.TotalCount}, nil
		},
	})
}

// listPages pages through a plain-array sub-resource endpoint (files,
// reviews, timeline) with a short-page stop.
func (c *Client) listPages(ctx context.Context, path string, header http.Header) ([]json.RawMessage, error) {
	return pagination.Offset(ctx, pagination.OffsetConfig{
		PageSize: listPageSize,
		Fetch: func(ctx context.Context, start, limit int) (pagination.Page, error) {
			params := url.Values{
				"per_page": {strconv.Itoa(limit)},
				"page":     {strconv.Itoa(start/limit + 1)},
			}
			payload, err := c.exec.Do(ctx, request.Options{
				Path:     path,
				Query:    params,
				Header:   header,
				UseCache: true,
			})
			if err != nil {
				return pagination.Page{}, err
			}

			var items []json.RawMessage
			if err := json.Unmarshal(payload, &items); err != nil {
				return pagination.Page{}, fmt.Errorf("decode %s page: %w", path, err)
			}
			return pagination.Page{Items: items, Total: -1}, nil
		},
	})
}

func (c *Client) parsePullRequest(raw json.RawMessage) (PullRequest, error) {
	var item searchItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return PullRequest{}, err
	}
	if item.Number == 0 {
		return PullRequest{}, fmt.Errorf("search item missing number")
	}

	pr := PullRequest{
		Number:    item.Number,
		Title:     item.Title,
		Repo:      repoFromURL(item.RepositoryURL),
		State:     item.State,
		Author:    item.User.Login,
		Draft:     item.Draft,
		URL:       item.HTMLURL,
		CreatedAt: c.parseTime(item.CreatedAt, "created_at"),
		ClosedAt:  c.parseTime(item.ClosedAt, "closed_at"),
	}
	if item.PullRequest.MergedAt != "" {
		pr.MergedAt = c.parseTime(item.PullRequest.MergedAt, "merged_at")
		pr.Merged = pr.MergedAt != nil
	}
	return pr, nil
}

// parseTime parses an RFC 3339 timestamp, logging and returning nil when the
// value is absent or malformed.
func (c *Client) parseTime(value, field string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.logger.Warn().Str("field", field).Str("value", value).Msg("Unparseable timestamp")
		return nil
	}
	return &t
}
