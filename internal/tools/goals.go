package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/goals"
)

// GoalsTool implements get_goals.
type GoalsTool struct {
	cfg   *config.Config
	store *goals.Store
}

// NewGoalsTool builds the tool.
func NewGoalsTool(cfg *config.Config, store *goals.Store) *GoalsTool {
	return &GoalsTool{cfg: cfg, store: store}
}

// Definition returns the MCP tool schema.
func (t *GoalsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_goals",
		mcp.WithDescription("List goals for self or a specified user. Returns active goals with their key results and progress."),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
		mcp.WithString("status",
			mcp.Enum("active", "completed", "archived", "all"),
			mcp.Description("Filter by goal status. Default: active"),
		),
	)
}

type goalView struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Category           string            `json:"category"`
	TargetDate         string            `json:"target_date,omitempty"`
	Status             string            `json:"status"`
	KeyResults         []goals.KeyResult `json:"key_results"`
	ProgressNotesCount int               `json:"progress_notes_count"`
}

type goalsResult struct {
	GitHubUsername string     `json:"github_username"`
	Goals          []goalView `json:"goals"`
	Count          int        `json:"count"`
}

// Handle lists the user's goals filtered by status.
func (t *GoalsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := req.GetString("status", "active")
	list, err := t.store.List(username, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := goalsResult{
		GitHubUsername: username,
		Goals:          make([]goalView, 0, len(list)),
		Count:          len(list),
	}
	for _, g := range list {
		result.Goals = append(result.Goals, goalView{
			ID:                 g.ID,
			Title:              g.Title,
			Description:        g.Description,
			Category:           g.Category,
			TargetDate:         g.TargetDate,
			Status:             g.Status,
			KeyResults:         g.KeyResults,
			ProgressNotesCount: len(g.ProgressNotes),
		})
	}
	return jsonResult(result)
}

// AddGoalTool implements add_goal.
type AddGoalTool struct {
	cfg   *config.Config
	store *goals.Store
}

// NewAddGoalTool builds the tool.
func NewAddGoalTool(cfg *config.Config, store *goals.Store) *AddGoalTool {
	return &AddGoalTool{cfg: cfg, store: store}
}

// Definition returns the MCP tool schema.
func (t *AddGoalTool) Definition() mcp.Tool {
	return mcp.NewTool("add_goal",
		mcp.WithDescription("Add a new goal with optional key results and target date. Examples: target_date='2026-06-30', '2026-12-31', 'Q2 2026'"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Goal title (must not be empty)"),
		),
		mcp.WithString("description",
			mcp.Description("Detailed description of the goal"),
		),
		mcp.WithString("category",
			mcp.Enum("career", "learning", "project", "health", "general"),
			mcp.Description("Goal category. Default: general"),
		),
		mcp.WithString("target_date",
			mcp.Description("Target completion date. Examples: '2026-06-30', 'Q1 2026', '2026-12-31'"),
		),
		mcp.WithArray("key_results",
			mcp.Description("Measurable key results for the goal"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string"},
					"target":      map[string]any{"type": "string"},
				},
				"required": []string{"description"},
			}),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type addedGoal struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	KeyResultsCount int    `json:"key_results_count"`
}

type addGoalResult struct {
	Success        bool      `json:"success"`
	GitHubUsername string    `json:"github_username"`
	Goal           addedGoal `json:"goal"`
}

// Handle creates the goal.
func (t *AddGoalTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	goal, err := t.store.Add(username, goals.NewGoal{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Category:    req.GetString("category", ""),
		TargetDate:  req.GetString("target_date", ""),
		KeyResults:  keyResultsArg(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(addGoalResult{
		Success:        true,
		GitHubUsername: username,
		Goal: addedGoal{
			ID:              goal.ID,
			Title:           goal.Title,
			Category:        goal.Category,
			KeyResultsCount: len(goal.KeyResults),
		},
	})
}

// UpdateGoalTool implements update_goal_progress.
type UpdateGoalTool struct {
	cfg   *config.Config
	store *goals.Store
}

// NewUpdateGoalTool builds the tool.
func NewUpdateGoalTool(cfg *config.Config, store *goals.Store) *UpdateGoalTool {
	return &UpdateGoalTool{cfg: cfg, store: store}
}

// Definition returns the MCP tool schema.
func (t *UpdateGoalTool) Definition() mcp.Tool {
	return mcp.NewTool("update_goal_progress",
		mcp.WithDescription("Update progress on a goal. Can update status, add a progress note, or update key result progress."),
		mcp.WithString("goal_id",
			mcp.Required(),
			mcp.Description("Goal ID (slug) to update"),
		),
		mcp.WithString("status",
			mcp.Enum("active", "completed", "archived"),
			mcp.Description("New status for the goal"),
		),
		mcp.WithString("progress_note",
			mcp.Description("Add a progress note with today's date"),
		),
		mcp.WithArray("key_result_updates",
			mcp.Description("Updates to specific key results"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index":   map[string]any{"type": "integer", "description": "Key result index (0-based)"},
					"current": map[string]any{"type": "string", "description": "Current progress value"},
					"status":  map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed", "blocked"}},
				},
				"required": []string{"index"},
			}),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type updateGoalResult struct {
	Success bool     `json:"success"`
	GoalID  string   `json:"goal_id"`
	Changes []string `json:"changes"`
}

// Handle applies the update and reports what changed.
func (t *UpdateGoalTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	goalID := req.GetString("goal_id", "")
	changes, err := t.store.UpdateProgress(username, goalID, goals.ProgressUpdate{
		Status:       req.GetString("status", ""),
		ProgressNote: req.GetString("progress_note", ""),
		KeyResults:   keyResultUpdatesArg(req),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if changes == nil {
		changes = []string{}
	}

	return jsonResult(updateGoalResult{Success: true, GoalID: goalID, Changes: changes})
}

// GoalProgressTool implements get_goal_progress.
type GoalProgressTool struct {
	cfg   *config.Config
	store *goals.Store
}

// NewGoalProgressTool builds the tool.
func NewGoalProgressTool(cfg *config.Config, store *goals.Store) *GoalProgressTool {
	return &GoalProgressTool{cfg: cfg, store: store}
}

// Definition returns the MCP tool schema.
func (t *GoalProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("get_goal_progress",
		mcp.WithDescription("Get detailed progress summary for a specific goal or all goals."),
		mcp.WithString("goal_id",
			mcp.Description("Specific goal ID. If omitted, returns summary for all active goals."),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type goalProgressView struct {
	ID                 string               `json:"id"`
	Title              string               `json:"title"`
	Status             string               `json:"status"`
	TargetDate         string               `json:"target_date,omitempty"`
	KeyResultsProgress string               `json:"key_results_progress"`
	KeyResults         []goals.KeyResult    `json:"key_results"`
	RecentNotes        []goals.ProgressNote `json:"recent_notes"`
}

type goalProgressSummary struct {
	ActiveGoals         int `json:"active_goals"`
	TotalKeyResults     int `json:"total_key_results"`
	CompletedKeyResults int `json:"completed_key_results"`
}

type goalProgressResult struct {
	GitHubUsername string              `json:"github_username"`
	Goals          []goalProgressView  `json:"goals"`
	Summary        goalProgressSummary `json:"summary"`
}

// Handle summarizes one goal, or every active goal when no id is given.
// Recent notes are the last five.
func (t *GoalProgressTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var list []goals.Goal
	if goalID := req.GetString("goal_id", ""); goalID != "" {
		goal, err := t.store.Get(username, goalID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		list = []goals.Goal{goal}
	} else {
		list, err = t.store.List(username, "active")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result := goalProgressResult{
		GitHubUsername: username,
		Goals:          make([]goalProgressView, 0, len(list)),
	}
	for _, g := range list {
		completed := 0
		for _, kr := range g.KeyResults {
			if kr.Status == "completed" {
				completed++
			}
		}

		recent := g.ProgressNotes
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		if recent == nil {
			recent = []goals.ProgressNote{}
		}

		result.Goals = append(result.Goals, goalProgressView{
			ID:                 g.ID,
			Title:              g.Title,
			Status:             g.Status,
			TargetDate:         g.TargetDate,
			KeyResultsProgress: fmt.Sprintf("%d/%d", completed, len(g.KeyResults)),
			KeyResults:         g.KeyResults,
			RecentNotes:        recent,
		})

		if g.Status == "active" {
			result.Summary.ActiveGoals++
		}
		result.Summary.TotalKeyResults += len(g.KeyResults)
		result.Summary.CompletedKeyResults += completed
	}

	return jsonResult(result)
}

// keyResultsArg parses the add_goal key_results array. Entries without a
// description are dropped.
func keyResultsArg(req mcp.CallToolRequest) []goals.KeyResult {
	raw, ok := req.GetArguments()["key_results"].([]any)
	if !ok {
		return nil
	}
	out := make([]goals.KeyResult, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		kr := goals.KeyResult{}
		if s, ok := m["description"].(string); ok {
			kr.Description = s
		}
		if s, ok := m["target"].(string); ok {
			kr.Target = s
		}
		if kr.Description == "" {
			continue
		}
		out = append(out, kr)
	}
	return out
}

// keyResultUpdatesArg parses the update_goal_progress key_result_updates
// array. Entries without an index are dropped.
func keyResultUpdatesArg(req mcp.CallToolRequest) []goals.KeyResultUpdate {
	raw, ok := req.GetArguments()["key_result_updates"].([]any)
	if !ok {
		return nil
	}
	out := make([]goals.KeyResultUpdate, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		idx, ok := m["index"].(float64)
		if !ok {
			continue
		}
		update := goals.KeyResultUpdate{Index: int(idx)}
		if s, ok := m["current"].(string); ok {
			update.Current = &s
		}
		if s, ok := m["status"].(string); ok {
			update.Status = &s
		}
		out = append(out, update)
	}
	return out
}
