package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/pkg/github"
	"github.com/workpulse/workpulse/pkg/logging"
)

// maxDiffBytes caps the diff payload returned by get_pr_details.
const maxDiffBytes = 50 * 1024

// PulseTool implements get_member_pulse: a qualitative work summary with
// PR titles, reviewers, collaboration counters, and open PRs.
type PulseTool struct {
	cfg    *config.Config
	gh     *github.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewPulseTool builds the tool.
func NewPulseTool(cfg *config.Config, gh *github.Client) *PulseTool {
	return &PulseTool{
		cfg:    cfg,
		gh:     gh,
		logger: logging.NewLogger("tools"),
		now:    time.Now,
	}
}

// Definition returns the MCP tool schema.
func (t *PulseTool) Definition() mcp.Tool {
	return mcp.NewTool("get_member_pulse",
		mcp.WithDescription(
			"Get qualitative work summary for a team member. Returns PR titles, "+
				"reviewers, collaboration patterns, and open PRs - structured for "+
				"narrative analysis rather than just counts.",
		),
		mcp.WithString("github_username",
			mcp.Required(),
			mcp.Description("GitHub username of the team member"),
		),
		mcp.WithNumber("days",
			mcp.Description("Number of days to look back (default: 14). Must be 1-365."),
		),
	)
}

type pulsePR struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	Repo      string   `json:"repo"`
	URL       string   `json:"url"`
	MergedAt  string   `json:"merged_at,omitempty"`
	Reviewers []string `json:"reviewers"`
}

type pulseReview struct {
	PRNumber int    `json:"pr_number"`
	PRTitle  string `json:"pr_title"`
	Repo     string `json:"repo"`
	URL      string `json:"url"`
}

type openPR struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Repo     string `json:"repo"`
	URL      string `json:"url"`
	DaysOpen int    `json:"days_open"`
}

type collaboration struct {
	ReviewedBy            map[string]int `json:"reviewed_by"`
	ReviewedFor           map[string]int `json:"reviewed_for"`
	FrequentCollaborators []string       `json:"frequent_collaborators"`
}

type pulsePeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type pulseSummary struct {
	PRsCount            int `json:"prs_count"`
	ReviewsCount        int `json:"reviews_count"`
	UniqueCollaborators int `json:"unique_collaborators"`
	OpenPRCount         int `json:"open_pr_count"`
}

type pulseResult struct {
	GitHubUsername string        `json:"github_username"`
	Name           string        `json:"name"`
	Team           string        `json:"team,omitempty"`
	Period         pulsePeriod   `json:"period"`
	PRsMerged      []pulsePR     `json:"prs_merged"`
	ReviewsGiven   []pulseReview `json:"reviews_given"`
	Collaboration  collaboration `json:"collaboration"`
	OpenPRs        []openPR      `json:"open_prs"`
	Summary        pulseSummary  `json:"summary"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// Handle builds the pulse: PRs created in the window and since merged, the
// reviewers on each, reviews the member gave (with the PR authors they
// reviewed for), and currently open PRs. Review and open-PR failures
// degrade to warnings.
func (t *PulseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := req.GetString("github_username", "")
	member, err := requireMember(t.cfg, username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	days := intArg(req, "days", 14)
	if days < 1 || days > 365 {
		return mcp.NewToolResultError("days must be between 1 and 365"), nil
	}

	now := t.now().UTC()
	since := now.AddDate(0, 0, -days)

	prs, err := t.gh.SearchPullRequests(ctx, username, since, now)
	if err != nil {
		t.logger.Error().Err(err).Str("username", username).Msg("GitHub PR search failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch GitHub PRs: %v", err)), nil
	}

	merged := prs[:0]
	for _, pr := range prs {
		if pr.Merged {
			merged = append(merged, pr)
		}
	}

	keys := make([]github.Key, len(merged))
	for i, pr := range merged {
		keys[i] = pr.Key()
	}
	reviewsByPR := t.gh.BatchReviews(ctx, keys)

	result := pulseResult{
		GitHubUsername: username,
		Name:           member.Name,
		Period:         pulsePeriod{Start: formatDay(since), End: formatDay(now)},
		PRsMerged:      make([]pulsePR, 0, len(merged)),
		ReviewsGiven:   []pulseReview{},
		OpenPRs:        []openPR{},
	}
	if team, ok := t.cfg.TeamOf(username); ok {
		result.Team = team.ID
	}

	reviewedBy := map[string]int{}
	reviewedFor := map[string]int{}

	for _, pr := range merged {
		reviewers := reviewerLogins(reviewsByPR[pr.Key()])
		entry := pulsePR{
			Number:    pr.Number,
			Title:     pr.Title,
			Repo:      pr.Repo,
			URL:       pr.URL,
			Reviewers: reviewers,
		}
		if pr.MergedAt != nil {
			entry.MergedAt = pr.MergedAt.Format(time.RFC3339)
		}
		result.PRsMerged = append(result.PRsMerged, entry)

		for _, reviewer := range reviewers {
			reviewedBy[reviewer]++
		}
	}

	reviews, err := t.gh.SearchReviewsByUser(ctx, username, since, now)
	if err != nil {
		t.logger.Warn().Err(err).Str("username", username).Msg("Failed to fetch reviews")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch reviews: %v", err))
	}
	for _, rv := range reviews {
		result.ReviewsGiven = append(result.ReviewsGiven, pulseReview{
			PRNumber: rv.PRNumber,
			PRTitle:  rv.PRTitle,
			Repo:     rv.Repo,
			URL:      rv.URL,
		})
		if rv.PRAuthor != "" && rv.PRAuthor != username {
			reviewedFor[rv.PRAuthor]++
		}
	}

	openList, err := t.gh.SearchOpenPullRequests(ctx, username)
	if err != nil {
		t.logger.Warn().Err(err).Str("username", username).Msg("Failed to fetch open PRs")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch open PRs: %v", err))
	}
	for _, pr := range openList {
		daysOpen := 0
		if pr.CreatedAt != nil {
			daysOpen = int(now.Sub(*pr.CreatedAt).Hours() / 24)
		}
		result.OpenPRs = append(result.OpenPRs, openPR{
			Number:   pr.Number,
			Title:    pr.Title,
			Repo:     pr.Repo,
			URL:      pr.URL,
			DaysOpen: daysOpen,
		})
	}

	unique := map[string]struct{}{}
	for user := range reviewedBy {
		unique[user] = struct{}{}
	}
	for user := range reviewedFor {
		unique[user] = struct{}{}
	}

	result.Collaboration = collaboration{
		ReviewedBy:            topCounts(reviewedBy, 10),
		ReviewedFor:           topCounts(reviewedFor, 10),
		FrequentCollaborators: frequentCollaborators(reviewedBy, reviewedFor, 5),
	}
	result.Summary = pulseSummary{
		PRsCount:            len(result.PRsMerged),
		ReviewsCount:        len(result.ReviewsGiven),
		UniqueCollaborators: len(unique),
		OpenPRCount:         len(result.OpenPRs),
	}

	return jsonResult(result)
}

// reviewerLogins dedupes review authors preserving first-seen order.
func reviewerLogins(reviews []github.Review) []string {
	seen := map[string]struct{}{}
	logins := []string{}
	for _, rv := range reviews {
		if rv.Author == "" {
			continue
		}
		if _, dup := seen[rv.Author]; dup {
			continue
		}
		seen[rv.Author] = struct{}{}
		logins = append(logins, rv.Author)
	}
	return logins
}

// topCounts keeps the n highest counts, ties broken by name.
func topCounts(counts map[string]int, n int) map[string]int {
	if len(counts) <= n {
		if counts == nil {
			return map[string]int{}
		}
		return counts
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	top := make(map[string]int, n)
	for _, name := range names[:n] {
		top[name] = counts[name]
	}
	return top
}

// frequentCollaborators returns users present in both counters, ordered by
// total interaction count.
func frequentCollaborators(reviewedBy, reviewedFor map[string]int, n int) []string {
	frequent := []string{}
	for user := range reviewedBy {
		if reviewedFor[user] > 0 {
			frequent = append(frequent, user)
		}
	}
	sort.Slice(frequent, func(i, j int) bool {
		ti := reviewedBy[frequent[i]] + reviewedFor[frequent[i]]
		tj := reviewedBy[frequent[j]] + reviewedFor[frequent[j]]
		if ti != tj {
			return ti > tj
		}
		return frequent[i] < frequent[j]
	})
	if len(frequent) > n {
		frequent = frequent[:n]
	}
	return frequent
}

// PRDetailsTool implements get_pr_details: size counters, changed files,
// reviews, review turnaround, and optionally the diff for one PR.
type PRDetailsTool struct {
	gh     *github.Client
	logger zerolog.Logger
}

// NewPRDetailsTool builds the tool.
func NewPRDetailsTool(gh *github.Client) *PRDetailsTool {
	return &PRDetailsTool{gh: gh, logger: logging.NewLogger("tools")}
}

// Definition returns the MCP tool schema.
func (t *PRDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_pr_details",
		mcp.WithDescription(
			"Get detailed information about a specific PR including files changed, "+
				"reviews with review turnaround, and optionally the actual diff content "+
				"for deeper analysis of what was built.",
		),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository name (e.g., 'mauvelous-hippo')"),
		),
		mcp.WithNumber("pr_number",
			mcp.Required(),
			mcp.Description("Pull request number"),
		),
		mcp.WithBoolean("include_diff",
			mcp.Description("Include the actual diff content (default: false). Set to true for deeper analysis."),
		),
	)
}

type prFile struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

type prReview struct {
	Author      string `json:"author"`
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at,omitempty"`
	URL         string `json:"url,omitempty"`
}

type prTurnaround struct {
	RequestedAt   string   `json:"requested_at,omitempty"`
	FirstReviewAt string   `json:"first_review_at,omitempty"`
	Hours         *float64 `json:"hours,omitempty"`
}

type prDetailsSummary struct {
	TotalFiles     int `json:"total_files"`
	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`
	Commits        int `json:"commits"`
	ReviewCount    int `json:"review_count"`
}

type prDetailsResult struct {
	Repo       string           `json:"repo"`
	PRNumber   int              `json:"pr_number"`
	Summary    prDetailsSummary `json:"summary"`
	Files      []prFile         `json:"files"`
	Reviews    []prReview       `json:"reviews"`
	Turnaround *prTurnaround    `json:"review_turnaround,omitempty"`
	Diff       string           `json:"diff,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Handle fetches the PR's counters and files, then reviews and timeline for
// turnaround. Review, timeline, and diff failures degrade to warnings.
func (t *PRDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := req.GetString("repo", "")
	number := intArg(req, "pr_number", 0)
	if number <= 0 {
		return mcp.NewToolResultError("pr_number is required"), nil
	}

	stats, err := t.gh.GetPullRequest(ctx, repo, number)
	if err != nil {
		t.logger.Error().Err(err).Str("repo", repo).Int("number", number).Msg("Failed to fetch PR")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch PR: %v", err)), nil
	}

	files, err := t.gh.GetPullRequestFiles(ctx, repo, number)
	if err != nil {
		t.logger.Error().Err(err).Str("repo", repo).Int("number", number).Msg("Failed to fetch PR files")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch PR files: %v", err)), nil
	}

	result := prDetailsResult{
		Repo:     repo,
		PRNumber: number,
		Files:    make([]prFile, 0, len(files)),
		Reviews:  []prReview{},
	}
	for _, f := range files {
		result.Files = append(result.Files, prFile{
			Path:      f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
		})
	}

	reviews, err := t.gh.GetPullRequestReviews(ctx, repo, number)
	if err != nil {
		t.logger.Warn().Err(err).Str("repo", repo).Int("number", number).Msg("Failed to fetch reviews")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch reviews: %v", err))
	}
	for _, rv := range reviews {
		entry := prReview{Author: rv.Author, State: rv.State, URL: rv.URL}
		if rv.SubmittedAt != nil {
			entry.SubmittedAt = rv.SubmittedAt.Format(time.RFC3339)
		}
		result.Reviews = append(result.Reviews, entry)
	}

	timeline, err := t.gh.GetPullRequestTimeline(ctx, repo, number)
	if err != nil {
		t.logger.Warn().Err(err).Str("repo", repo).Int("number", number).Msg("Failed to fetch timeline")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch timeline: %v", err))
	} else {
		result.Turnaround = reviewTurnaround(timeline, reviews)
	}

	if boolArg(req, "include_diff", false) {
		diff, err := t.gh.GetPullRequestDiff(ctx, repo, number)
		if err != nil {
			t.logger.Warn().Err(err).Str("repo", repo).Int("number", number).Msg("Failed to fetch diff")
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch diff: %v", err))
		} else {
			if len(diff) > maxDiffBytes {
				diff = diff[:maxDiffBytes] + "\n... (truncated)"
			}
			result.Diff = diff
		}
	}

	result.Summary = prDetailsSummary{
		TotalFiles:     len(result.Files),
		TotalAdditions: stats.Additions,
		TotalDeletions: stats.Deletions,
		Commits:        stats.Commits,
		ReviewCount:    len(result.Reviews),
	}

	return jsonResult(result)
}

// reviewTurnaround computes hours from the first review_requested event to
// the first review submitted after it. Nil when the PR never had a review
// request.
func reviewTurnaround(timeline []github.TimelineEvent, reviews []github.Review) *prTurnaround {
	var requested *time.Time
	for _, ev := range timeline {
		if ev.Event != "review_requested" || ev.CreatedAt == nil {
			continue
		}
		if requested == nil || ev.CreatedAt.Before(*requested) {
			requested = ev.CreatedAt
		}
	}
	if requested == nil {
		return nil
	}

	out := &prTurnaround{RequestedAt: requested.Format(time.RFC3339)}

	var first *time.Time
	for _, rv := range reviews {
		if rv.SubmittedAt == nil || rv.SubmittedAt.Before(*requested) {
			continue
		}
		if first == nil || rv.SubmittedAt.Before(*first) {
			first = rv.SubmittedAt
		}
	}
	if first != nil {
		hours := math.Round(first.Sub(*requested).Hours()*10) / 10
		out.FirstReviewAt = first.Format(time.RFC3339)
		out.Hours = &hours
	}
	return out
}
