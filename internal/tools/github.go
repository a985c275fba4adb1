package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/pkg/github"
	"github.com/workpulse/workpulse/pkg/logging"
)

// ContributionsTool implements get_github_contributions: merged PRs with
// size counters plus reviews given over a date window.
type ContributionsTool struct {
	cfg    *config.Config
	gh     *github.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewContributionsTool builds the tool.
func NewContributionsTool(cfg *config.Config, gh *github.Client) *ContributionsTool {
	return &ContributionsTool{
		cfg:    cfg,
		gh:     gh,
		logger: logging.NewLogger("tools"),
		now:    time.Now,
	}
}

// Definition returns the MCP tool schema.
func (t *ContributionsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_github_contributions",
		mcp.WithDescription(
			"Get GitHub contributions for a team member. Returns PRs merged "+
				"(excludes open/unmerged PRs), code reviews given (filtered by PR "+
				"creation date, not review date), and total lines changed.",
		),
		mcp.WithString("github_username",
			mcp.Required(),
			mcp.Description("GitHub username of the team member"),
		),
		mcp.WithNumber("days",
			mcp.Description("Number of days to look back (default: 14). Must be 1-365. Ignored if start_date is provided."),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date in YYYY-MM-DD format. If provided, overrides 'days'."),
		),
		mcp.WithString("end_date",
			mcp.Description("End date in YYYY-MM-DD format. Defaults to today if not provided."),
		),
	)
}

type prSummary struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Repo      string `json:"repo"`
	URL       string `json:"url"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

type reviewSummary struct {
	PRTitle string `json:"pr_title"`
	Repo    string `json:"repo"`
	State   string `json:"state"`
	URL     string `json:"url"`
}

type contributionsSummary struct {
	MergedCount  int `json:"merged_count"`
	ReviewsCount int `json:"reviews_count"`
	NetLines     int `json:"net_lines"`
}

type contributionsResult struct {
	MemberName     string               `json:"member_name"`
	GitHubUsername string               `json:"github_username"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	PRsMerged      []prSummary          `json:"prs_merged"`
	ReviewsGiven   []reviewSummary      `json:"reviews_given"`
	TotalAdditions int                  `json:"total_additions"`
	TotalDeletions int                  `json:"total_deletions"`
	Summary        contributionsSummary `json:"summary"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// Handle fetches merged PRs for the window, their size counters in batch,
// and the reviews the member gave. A review fetch failure degrades to a
// warning; the PR data is still returned.
func (t *ContributionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := req.GetString("github_username", "")
	member, err := requireMember(t.cfg, username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	since, until, err := dateRange(req, 14, t.now().UTC())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prs, err := t.gh.SearchMergedPullRequests(ctx, username, since, until)
	if err != nil {
		t.logger.Error().Err(err).Str("username", username).Msg("GitHub PR search failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch GitHub PRs: %v", err)), nil
	}

	keys := make([]github.Key, len(prs))
	for i, pr := range prs {
		keys[i] = pr.Key()
	}
	stats := t.gh.BatchStats(ctx, keys)

	result := contributionsResult{
		MemberName:     member.Name,
		GitHubUsername: username,
		StartDate:      formatDay(since),
		EndDate:        formatDay(until),
		PRsMerged:      make([]prSummary, 0, len(prs)),
		ReviewsGiven:   []reviewSummary{},
	}

	for _, pr := range prs {
		st, ok := stats[pr.Key()]
		if !ok {
			t.logger.Warn().Str("pr", pr.Key().String()).Msg("Missing size counters for merged PR")
		}
		result.PRsMerged = append(result.PRsMerged, prSummary{
			Number:    pr.Number,
			Title:     pr.Title,
			Repo:      pr.Repo,
			URL:       pr.URL,
			Additions: st.Additions,
			Deletions: st.Deletions,
		})
		result.TotalAdditions += st.Additions
		result.TotalDeletions += st.Deletions
	}

	reviews, err := t.gh.SearchReviewsByUser(ctx, username, since, until)
	if err != nil {
		t.logger.Warn().Err(err).Str("username", username).Msg("Failed to fetch reviews")
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to fetch reviews: %v", err))
	}
	for _, rv := range reviews {
		result.ReviewsGiven = append(result.ReviewsGiven, reviewSummary{
			PRTitle: rv.PRTitle,
			Repo:    rv.Repo,
			State:   rv.State,
			URL:     rv.URL,
		})
	}

	result.Summary = contributionsSummary{
		MergedCount:  len(result.PRsMerged),
		ReviewsCount: len(result.ReviewsGiven),
		NetLines:     result.TotalAdditions - result.TotalDeletions,
	}

	return jsonResult(result)
}

// TeamMembersTool implements get_team_members.
type TeamMembersTool struct {
	cfg *config.Config
}

// NewTeamMembersTool builds the tool.
func NewTeamMembersTool(cfg *config.Config) *TeamMembersTool {
	return &TeamMembersTool{cfg: cfg}
}

// Definition returns the MCP tool schema.
func (t *TeamMembersTool) Definition() mcp.Tool {
	return mcp.NewTool("get_team_members",
		mcp.WithDescription("Get list of configured team members with their names and usernames."),
	)
}

type memberSummary struct {
	GitHubUsername     string `json:"github_username"`
	Name               string `json:"name"`
	AtlassianAccountID string `json:"atlassian_account_id,omitempty"`
	Team               string `json:"team"`
}

type teamMembersResult struct {
	TeamMembers []memberSummary `json:"team_members"`
	Count       int             `json:"count"`
}

// Handle lists every configured member sorted by username.
func (t *TeamMembersTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	members := make([]memberSummary, 0)
	for _, username := range t.cfg.AllUsernames() {
		member, _ := t.cfg.Member(username)
		team, _ := t.cfg.TeamOf(username)
		members = append(members, memberSummary{
			GitHubUsername:     username,
			Name:               member.Name,
			AtlassianAccountID: member.AtlassianAccountID,
			Team:               team.ID,
		})
	}
	return jsonResult(teamMembersResult{TeamMembers: members, Count: len(members)})
}
