package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/pkg/jira"
	"github.com/workpulse/workpulse/pkg/logging"
)

// searchResultsCap bounds search_jira_issues regardless of the request.
const searchResultsCap = 100

// issueView is the issue shape rendered in tool results.
type issueView struct {
	Key            string   `json:"key"`
	Summary        string   `json:"summary"`
	IssueType      string   `json:"issue_type"`
	Status         string   `json:"status"`
	StatusCategory string   `json:"status_category"`
	Assignee       string   `json:"assignee,omitempty"`
	StoryPoints    *float64 `json:"story_points"`
	DueDate        string   `json:"due_date,omitempty"`
	URL            string   `json:"url"`
}

func viewIssue(i jira.Issue) issueView {
	view := issueView{
		Key:            i.Key,
		Summary:        i.Summary,
		IssueType:      i.IssueType,
		Status:         i.Status,
		StatusCategory: i.StatusCategory,
		Assignee:       i.AssigneeName,
		StoryPoints:    i.StoryPoints,
		URL:            i.URL,
	}
	if i.DueDate != nil {
		view.DueDate = i.DueDate.Format(dayLayout)
	}
	return view
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// RoadmapTool implements get_initiative_roadmap.
type RoadmapTool struct {
	jc     *jira.Client
	logger zerolog.Logger
}

// NewRoadmapTool builds the tool.
func NewRoadmapTool(jc *jira.Client) *RoadmapTool {
	return &RoadmapTool{jc: jc, logger: logging.NewLogger("tools")}
}

// Definition returns the MCP tool schema.
func (t *RoadmapTool) Definition() mcp.Tool {
	return mcp.NewTool("get_initiative_roadmap",
		mcp.WithDescription(
			"Get a roadmap view of an initiative including all epics with progress, "+
				"status, assignees, and deadlines. Shows story points completed/total "+
				"and issue counts for each epic.",
		),
		mcp.WithString("initiative_key",
			mcp.Required(),
			mcp.Description("Jira issue key of the initiative (e.g., 'PROJ-100')"),
		),
	)
}

type epicAssignee struct {
	AccountID   string  `json:"account_id"`
	Name        string  `json:"name"`
	StoryPoints float64 `json:"story_points"`
	IssueCount  int     `json:"issue_count"`
}

type epicProgress struct {
	Epic                 issueView      `json:"epic"`
	TotalStoryPoints     float64        `json:"total_story_points"`
	CompletedStoryPoints float64        `json:"completed_story_points"`
	ProgressPercentage   float64        `json:"progress_percentage"`
	TotalIssues          int            `json:"total_issues"`
	CompletedIssues      int            `json:"completed_issues"`
	InProgressIssues     int            `json:"in_progress_issues"`
	Assignees            []epicAssignee `json:"assignees"`
}

type roadmapSummary struct {
	TotalEpics           int     `json:"total_epics"`
	TotalStoryPoints     float64 `json:"total_story_points"`
	CompletedStoryPoints float64 `json:"completed_story_points"`
	ProgressPercentage   float64 `json:"progress_percentage"`
	TotalIssues          int     `json:"total_issues"`
	CompletedIssues      int     `json:"completed_issues"`
}

type roadmapResult struct {
	Initiative issueView      `json:"initiative"`
	Epics      []epicProgress `json:"epics"`
	Summary    roadmapSummary `json:"summary"`
	Warning    string         `json:"warning,omitempty"`
}

// Handle fetches the initiative, its epics, and every epic's children in
// one batched query. A children fetch failure degrades to a warning with
// zeroed progress.
func (t *RoadmapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("initiative_key", "")

	initiative, err := t.jc.GetIssue(ctx, key)
	if err != nil {
		t.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch initiative")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch initiative: %v", err)), nil
	}

	epics, err := t.jc.GetInitiativeEpics(ctx, key)
	if err != nil {
		t.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch epics")
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch epics: %v", err)), nil
	}

	epicKeys := make([]string, len(epics))
	for i, epic := range epics {
		epicKeys[i] = epic.Key
	}

	result := roadmapResult{
		Initiative: viewIssue(initiative),
		Epics:      make([]epicProgress, 0, len(epics)),
	}

	childrenByEpic, err := t.jc.GetChildrenForEpics(ctx, epicKeys)
	if err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("Failed to batch fetch epic children")
		childrenByEpic = map[string][]jira.Issue{}
		result.Warning = "failed to fetch epic children; progress data may be incomplete"
	}

	for _, epic := range epics {
		progress := epicProgressFor(epic, childrenByEpic[epic.Key])
		result.Epics = append(result.Epics, progress)

		result.Summary.TotalStoryPoints += progress.TotalStoryPoints
		result.Summary.CompletedStoryPoints += progress.CompletedStoryPoints
		result.Summary.TotalIssues += progress.TotalIssues
		result.Summary.CompletedIssues += progress.CompletedIssues
	}
	result.Summary.TotalEpics = len(epics)
	if result.Summary.TotalStoryPoints > 0 {
		result.Summary.ProgressPercentage = round1(
			result.Summary.CompletedStoryPoints / result.Summary.TotalStoryPoints * 100)
	}

	return jsonResult(result)
}

// epicProgressFor rolls children up into the epic's progress row. Assignee
// allocation counts only issues that are not done, in first-seen order.
func epicProgressFor(epic jira.Issue, children []jira.Issue) epicProgress {
	progress := epicProgress{
		Epic:        viewIssue(epic),
		TotalIssues: len(children),
		Assignees:   []epicAssignee{},
	}

	assigneeIdx := map[string]int{}
	for _, issue := range children {
		points := 0.0
		if issue.StoryPoints != nil {
			points = *issue.StoryPoints
		}
		progress.TotalStoryPoints += points

		switch {
		case issue.Done():
			progress.CompletedStoryPoints += points
			progress.CompletedIssues++
		case issue.StatusCategory == "In Progress":
			progress.InProgressIssues++
		}

		if issue.AssigneeID == "" || issue.Done() {
			continue
		}
		idx, ok := assigneeIdx[issue.AssigneeID]
		if !ok {
			name := issue.AssigneeName
			if name == "" {
				name = "Unknown"
			}
			idx = len(progress.Assignees)
			assigneeIdx[issue.AssigneeID] = idx
			progress.Assignees = append(progress.Assignees, epicAssignee{
				AccountID: issue.AssigneeID,
				Name:      name,
			})
		}
		progress.Assignees[idx].StoryPoints += points
		progress.Assignees[idx].IssueCount++
	}

	if progress.TotalStoryPoints > 0 {
		progress.ProgressPercentage = round1(
			progress.CompletedStoryPoints / progress.TotalStoryPoints * 100)
	}
	return progress
}

// BandwidthTool implements get_team_bandwidth.
type BandwidthTool struct {
	cfg    *config.Config
	jc     *jira.Client
	logger zerolog.Logger
}

// NewBandwidthTool builds the tool.
func NewBandwidthTool(cfg *config.Config, jc *jira.Client) *BandwidthTool {
	return &BandwidthTool{cfg: cfg, jc: jc, logger: logging.NewLogger("tools")}
}

// Definition returns the MCP tool schema.
func (t *BandwidthTool) Definition() mcp.Tool {
	return mcp.NewTool("get_team_bandwidth",
		mcp.WithDescription(
			"Show how team members' work is distributed across epics and initiatives. "+
				"Returns open story points and issues per team member, with breakdown by epic.",
		),
		mcp.WithString("github_username",
			mcp.Description("Optional: Filter to a specific team member by GitHub username"),
		),
		mcp.WithString("initiative_key",
			mcp.Description("Optional: Filter to issues under a specific initiative"),
		),
	)
}

type epicAllocation struct {
	EpicKey     string  `json:"epic_key"`
	StoryPoints float64 `json:"story_points"`
	IssueCount  int     `json:"issue_count"`
}

type memberAllocation struct {
	GitHubUsername       string           `json:"github_username"`
	Name                 string           `json:"name"`
	AccountID            string           `json:"account_id"`
	TotalOpenStoryPoints float64          `json:"total_open_story_points"`
	TotalOpenIssues      int              `json:"total_open_issues"`
	AllocationByEpic     []epicAllocation `json:"allocation_by_epic"`
}

type bandwidthSummary struct {
	TotalMembers           int     `json:"total_members"`
	TotalOpenStoryPoints   float64 `json:"total_open_story_points"`
	TotalOpenIssues        int     `json:"total_open_issues"`
	AveragePointsPerMember float64 `json:"average_points_per_member"`
}

type bandwidthResult struct {
	TeamMembers []memberAllocation `json:"team_members"`
	Summary     bandwidthSummary   `json:"summary"`
}

// Handle computes per-member open workload. With an initiative filter the
// issue set is the initiative's epics plus children; otherwise each member's
// open issues are fetched directly. A fetch failure skips that member.
func (t *BandwidthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	usernames := t.cfg.AllUsernames()
	if explicit := req.GetString("github_username", ""); explicit != "" {
		if _, err := requireMember(t.cfg, explicit); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		usernames = []string{explicit}
	}

	var initiativeIssues []jira.Issue
	if key := req.GetString("initiative_key", ""); key != "" {
		epics, err := t.jc.GetInitiativeEpics(ctx, key)
		if err != nil {
			t.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch initiative epics")
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch initiative: %v", err)), nil
		}
		epicKeys := make([]string, len(epics))
		for i, epic := range epics {
			epicKeys[i] = epic.Key
		}
		childrenByEpic, err := t.jc.GetChildrenForEpics(ctx, epicKeys)
		if err != nil {
			t.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch epic children")
			return mcp.NewToolResultError(fmt.Sprintf("failed to fetch initiative: %v", err)), nil
		}
		initiativeIssues = epics
		for _, epicKey := range epicKeys {
			initiativeIssues = append(initiativeIssues, childrenByEpic[epicKey]...)
		}
	}

	result := bandwidthResult{TeamMembers: []memberAllocation{}}
	for _, username := range usernames {
		member, _ := t.cfg.Member(username)

		var issues []jira.Issue
		if initiativeIssues != nil {
			for _, issue := range initiativeIssues {
				if issue.AssigneeID == member.AtlassianAccountID && !issue.Done() {
					issues = append(issues, issue)
				}
			}
		} else {
			var err error
			issues, err = t.jc.SearchUserOpenIssues(ctx, member.AtlassianAccountID)
			if err != nil {
				t.logger.Error().Err(err).Str("username", username).Msg("Failed to fetch open issues")
				continue
			}
		}

		allocation := allocationFor(issues, username, member)
		result.TeamMembers = append(result.TeamMembers, allocation)
		result.Summary.TotalOpenStoryPoints += allocation.TotalOpenStoryPoints
		result.Summary.TotalOpenIssues += allocation.TotalOpenIssues
	}

	result.Summary.TotalMembers = len(result.TeamMembers)
	if len(result.TeamMembers) > 0 {
		result.Summary.AveragePointsPerMember = round1(
			result.Summary.TotalOpenStoryPoints / float64(len(result.TeamMembers)))
	}

	return jsonResult(result)
}

// allocationFor groups a member's issues by epic: the parent key, the epic
// link, or the issue itself when it is a top-level item.
func allocationFor(issues []jira.Issue, username string, member config.Member) memberAllocation {
	allocation := memberAllocation{
		GitHubUsername:   username,
		Name:             member.Name,
		AccountID:        member.AtlassianAccountID,
		TotalOpenIssues:  len(issues),
		AllocationByEpic: []epicAllocation{},
	}

	epicIdx := map[string]int{}
	for _, issue := range issues {
		points := 0.0
		if issue.StoryPoints != nil {
			points = *issue.StoryPoints
		}
		allocation.TotalOpenStoryPoints += points

		epicKey := issue.ParentKey
		if epicKey == "" {
			epicKey = issue.EpicLink
		}
		if epicKey == "" {
			epicKey = issue.Key
		}

		idx, ok := epicIdx[epicKey]
		if !ok {
			idx = len(allocation.AllocationByEpic)
			epicIdx[epicKey] = idx
			allocation.AllocationByEpic = append(allocation.AllocationByEpic, epicAllocation{EpicKey: epicKey})
		}
		allocation.AllocationByEpic[idx].StoryPoints += points
		allocation.AllocationByEpic[idx].IssueCount++
	}
	return allocation
}

// SearchIssuesTool implements search_jira_issues.
type SearchIssuesTool struct {
	jc     *jira.Client
	logger zerolog.Logger
}

// NewSearchIssuesTool builds the tool.
func NewSearchIssuesTool(jc *jira.Client) *SearchIssuesTool {
	return &SearchIssuesTool{jc: jc, logger: logging.NewLogger("tools")}
}

// Definition returns the MCP tool schema.
func (t *SearchIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("search_jira_issues",
		mcp.WithDescription(
			"Flexible JQL search for queries not covered by other tools. "+
				"Returns matching issues with key fields.",
		),
		mcp.WithString("jql",
			mcp.Required(),
			mcp.Description(`JQL query string (e.g., 'project = PROJ AND status = "In Progress"')`),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 50, max: 100)"),
		),
	)
}

type searchIssuesResult struct {
	JQL          string      `json:"jql"`
	TotalResults int         `json:"total_results"`
	Issues       []issueView `json:"issues"`
}

// Handle runs the JQL with the result cap enforced server-side.
func (t *SearchIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jql := req.GetString("jql", "")
	if jql == "" {
		return mcp.NewToolResultError("jql is required"), nil
	}

	maxResults := intArg(req, "max_results", 50)
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > searchResultsCap {
		maxResults = searchResultsCap
	}

	issues, err := t.jc.SearchIssues(ctx, jql, maxResults)
	if err != nil {
		t.logger.Error().Err(err).Msg("JQL search failed")
		return mcp.NewToolResultError(fmt.Sprintf("JQL search failed: %v", err)), nil
	}

	result := searchIssuesResult{
		JQL:          jql,
		TotalResults: len(issues),
		Issues:       make([]issueView, 0, len(issues)),
	}
	for _, issue := range issues {
		result.Issues = append(result.Issues, viewIssue(issue))
	}
	return jsonResult(result)
}

// UpdateIssueTool implements update_jira_issue.
type UpdateIssueTool struct {
	jc     *jira.Client
	logger zerolog.Logger
}

// NewUpdateIssueTool builds the tool.
func NewUpdateIssueTool(jc *jira.Client) *UpdateIssueTool {
	return &UpdateIssueTool{jc: jc, logger: logging.NewLogger("tools")}
}

// Definition returns the MCP tool schema.
func (t *UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("update_jira_issue",
		mcp.WithDescription(
			"Update a Jira issue's summary (title) and/or description. "+
				"Supports basic markdown formatting in description: headings (##), "+
				"bullet lists (-), checkboxes (- [ ]), code blocks (```), "+
				"bold (**text**), and inline code (`code`).",
		),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Jira issue key (e.g., 'PROJ-123')"),
		),
		mcp.WithString("summary",
			mcp.Description("New summary/title for the issue (optional)"),
		),
		mcp.WithString("description",
			mcp.Description("New description for the issue in markdown format (optional)"),
		),
	)
}

type updateIssueResult struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Issue    *issueView `json:"issue,omitempty"`
	IssueKey string     `json:"issue_key,omitempty"`
}

// Handle applies the update, then refetches the issue for the response.
// When the refetch fails the update still reports success.
func (t *UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("issue_key", "")
	summary := req.GetString("summary", "")
	description := req.GetString("description", "")

	if summary == "" && description == "" {
		return mcp.NewToolResultError("at least one of 'summary' or 'description' must be provided"), nil
	}

	update := jira.IssueUpdate{Summary: summary, Description: description}
	if err := t.jc.UpdateIssue(ctx, key, update); err != nil {
		t.logger.Error().Err(err).Str("key", key).Msg("Failed to update issue")
		return mcp.NewToolResultError(fmt.Sprintf("failed to update issue: %v", err)), nil
	}

	result := updateIssueResult{
		Success: true,
		Message: fmt.Sprintf("Successfully updated %s", key),
	}

	updated, err := t.jc.GetIssue(ctx, key)
	if err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("Updated issue but refetch failed")
		result.IssueKey = key
		return jsonResult(result)
	}
	view := viewIssue(updated)
	result.Issue = &view
	return jsonResult(result)
}
