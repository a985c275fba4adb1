package tools

import (
	"context"
	"reflect"
	"testing"

	"github.com/workpulse/workpulse/internal/goals"
)

func TestAddGoalTool_Handle(t *testing.T) {
	store := goals.NewStore(t.TempDir())
	tool := NewAddGoalTool(testConfig(), store)

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"title":       "Ship the widget",
		"category":    "project",
		"target_date": "2026-06-30",
		"key_results": []any{
			map[string]any{"description": "Land the API", "target": "100%"},
			map[string]any{"target": "dropped, no description"},
		},
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		Success        bool   `json:"success"`
		GitHubUsername string `json:"github_username"`
		Goal           struct {
			ID              string `json:"id"`
			Title           string `json:"title"`
			Category        string `json:"category"`
			KeyResultsCount int    `json:"key_results_count"`
		} `json:"goal"`
	}
	decodeResult(t, result, &got)

	if !got.Success {
		t.Error("success = false")
	}
	if got.GitHubUsername != "alice" {
		t.Errorf("github_username = %q, want alice (self)", got.GitHubUsername)
	}
	if got.Goal.ID != "ship-the-widget" {
		t.Errorf("goal id = %q", got.Goal.ID)
	}
	if got.Goal.Category != "project" {
		t.Errorf("category = %q", got.Goal.Category)
	}
	if got.Goal.KeyResultsCount != 1 {
		t.Errorf("key_results_count = %d, want 1 (empty description dropped)", got.Goal.KeyResultsCount)
	}

	// Same title again gets a numeric suffix.
	result, err = tool.Handle(context.Background(), callReq(map[string]any{
		"title": "Ship the widget",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Goal.ID != "ship-the-widget-1" {
		t.Errorf("duplicate goal id = %q, want ship-the-widget-1", got.Goal.ID)
	}
	if got.Goal.Category != "general" {
		t.Errorf("default category = %q, want general", got.Goal.Category)
	}
}

func TestAddGoalTool_EmptyTitle(t *testing.T) {
	tool := NewAddGoalTool(testConfig(), goals.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{"title": "   "}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "goals: title cannot be empty" {
		t.Errorf("error = %q", msg)
	}
}

func TestGoalsTool_StatusFilter(t *testing.T) {
	store := goals.NewStore(t.TempDir())
	for _, title := range []string{"Learn Rust", "Mentor Bob"} {
		if _, err := store.Add("alice", goals.NewGoal{Title: title}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if _, err := store.UpdateProgress("alice", "mentor-bob", goals.ProgressUpdate{Status: "completed"}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	tool := NewGoalsTool(testConfig(), store)

	var got struct {
		GitHubUsername string `json:"github_username"`
		Goals          []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"goals"`
		Count int `json:"count"`
	}

	// Default status is active.
	result, err := tool.Handle(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Count != 1 || len(got.Goals) != 1 || got.Goals[0].ID != "learn-rust" {
		t.Errorf("active goals = %+v (count %d)", got.Goals, got.Count)
	}

	result, err = tool.Handle(context.Background(), callReq(map[string]any{"status": "all"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Count != 2 {
		t.Errorf("all goals count = %d, want 2", got.Count)
	}
}

func TestGoalsTool_UnknownUser(t *testing.T) {
	tool := NewGoalsTool(testConfig(), goals.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{"github_username": "mallory"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "unknown user: mallory" {
		t.Errorf("error = %q", msg)
	}
}

func TestUpdateGoalTool_Handle(t *testing.T) {
	store := goals.NewStore(t.TempDir())
	if _, err := store.Add("alice", goals.NewGoal{
		Title:      "Ship the widget",
		KeyResults: []goals.KeyResult{{Description: "Land the API", Target: "100%"}},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tool := NewUpdateGoalTool(testConfig(), store)
	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"goal_id":       "ship-the-widget",
		"status":        "completed",
		"progress_note": "Halfway through rollout",
		"key_result_updates": []any{
			map[string]any{"index": float64(0), "current": "50%", "status": "in_progress"},
		},
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		Success bool     `json:"success"`
		GoalID  string   `json:"goal_id"`
		Changes []string `json:"changes"`
	}
	decodeResult(t, result, &got)

	if !got.Success || got.GoalID != "ship-the-widget" {
		t.Errorf("success = %v, goal_id = %q", got.Success, got.GoalID)
	}
	want := []string{
		"status updated: active -> completed",
		"progress note added",
		"key result #0 updated",
	}
	if !reflect.DeepEqual(got.Changes, want) {
		t.Errorf("changes = %v, want %v", got.Changes, want)
	}

	goal, err := store.Get("alice", "ship-the-widget")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if goal.Status != "completed" {
		t.Errorf("status = %q", goal.Status)
	}
	if goal.KeyResults[0].Current != "50%" || goal.KeyResults[0].Status != "in_progress" {
		t.Errorf("key result = %+v", goal.KeyResults[0])
	}
	if len(goal.ProgressNotes) != 1 || goal.ProgressNotes[0].Note != "Halfway through rollout" {
		t.Errorf("progress notes = %+v", goal.ProgressNotes)
	}
}

func TestUpdateGoalTool_UnknownGoal(t *testing.T) {
	tool := NewUpdateGoalTool(testConfig(), goals.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"goal_id": "missing",
		"status":  "completed",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "goals: goal not found: missing" {
		t.Errorf("error = %q", msg)
	}
}

func TestGoalProgressTool_Handle(t *testing.T) {
	store := goals.NewStore(t.TempDir())
	if _, err := store.Add("alice", goals.NewGoal{
		Title: "Ship the widget",
		KeyResults: []goals.KeyResult{
			{Description: "Land the API"},
			{Description: "Write the docs"},
		},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	status := "completed"
	if _, err := store.UpdateProgress("alice", "ship-the-widget", goals.ProgressUpdate{
		KeyResults: []goals.KeyResultUpdate{{Index: 0, Status: &status}},
	}); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	tool := NewGoalProgressTool(testConfig(), store)
	result, err := tool.Handle(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		Goals []struct {
			ID                 string `json:"id"`
			KeyResultsProgress string `json:"key_results_progress"`
			RecentNotes        []any  `json:"recent_notes"`
		} `json:"goals"`
		Summary struct {
			ActiveGoals         int `json:"active_goals"`
			TotalKeyResults     int `json:"total_key_results"`
			CompletedKeyResults int `json:"completed_key_results"`
		} `json:"summary"`
	}
	decodeResult(t, result, &got)

	if len(got.Goals) != 1 {
		t.Fatalf("goals = %d, want 1", len(got.Goals))
	}
	if got.Goals[0].KeyResultsProgress != "1/2" {
		t.Errorf("key_results_progress = %q", got.Goals[0].KeyResultsProgress)
	}
	if len(got.Goals[0].RecentNotes) != 0 {
		t.Errorf("recent_notes = %v", got.Goals[0].RecentNotes)
	}
	if got.Summary.ActiveGoals != 1 || got.Summary.TotalKeyResults != 2 || got.Summary.CompletedKeyResults != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}
