package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/pkg/confluence"
	"github.com/workpulse/workpulse/pkg/logging"
)

// ConfluenceContributionsTool implements get_confluence_contributions.
type ConfluenceContributionsTool struct {
	cfg    *config.Config
	cc     *confluence.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewConfluenceContributionsTool builds the tool.
func NewConfluenceContributionsTool(cfg *config.Config, cc *confluence.Client) *ConfluenceContributionsTool {
	return &ConfluenceContributionsTool{
		cfg:    cfg,
		cc:     cc,
		logger: logging.NewLogger("tools"),
		now:    time.Now,
	}
}

// Definition returns the MCP tool schema.
func (t *ConfluenceContributionsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_confluence_contributions",
		mcp.WithDescription(
			"Get Confluence contributions for a team member. Returns pages created, "+
				"pages updated, comments added, and blog posts within the specified time range.",
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

type confluenceSummary struct {
	PagesCreatedCount int `json:"pages_created_count"`
	PagesUpdatedCount int `json:"pages_updated_count"`
	CommentsCount     int `json:"comments_count"`
	BlogPostsCount    int `json:"blogposts_count"`
}

type confluenceResult struct {
	MemberName     string               `json:"member_name"`
	GitHubUsername string               `json:"github_username"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	SpaceKeys      []string             `json:"space_keys"`
	PagesCreated   []confluence.Content `json:"pages_created"`
	PagesUpdated   []confluence.Content `json:"pages_updated"`
	CommentsAdded  []confluence.Content `json:"comments_added"`
	BlogPosts      []confluence.Content `json:"blogposts"`
	Summary        confluenceSummary    `json:"summary"`
}

// Handle fetches the member's Confluence activity for the window.
func (t *ConfluenceContributionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := req.GetString("github_username", "")
	member, err := requireMember(t.cfg, username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	since, until, err := dateRange(req, 14, t.now().UTC())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	contributions, err := t.cc.GetUserContributions(ctx, member.AtlassianAccountID, since, until)
	if err != nil {
		t.logger.Error().Err(err).Str("username", username).Msg("Confluence search failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch Confluence data: %v", err)), nil
	}

	return jsonResult(confluenceResult{
		MemberName:     member.Name,
		GitHubUsername: username,
		StartDate:      formatDay(since),
		EndDate:        formatDay(until),
		SpaceKeys:      t.cc.SpaceKeys(),
		PagesCreated:   contributions.PagesCreated,
		PagesUpdated:   contributions.PagesUpdated,
		CommentsAdded:  contributions.Comments,
		BlogPosts:      contributions.BlogPosts,
		Summary: confluenceSummary{
			PagesCreatedCount: len(contributions.PagesCreated),
			PagesUpdatedCount: len(contributions.PagesUpdated),
			CommentsCount:     len(contributions.Comments),
			BlogPostsCount:    len(contributions.BlogPosts),
		},
	})
}
