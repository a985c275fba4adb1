package tools

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/workpulse/workpulse/internal/feedback"
)

func writeFeedbackFile(t *testing.T, dataDir, username, period, name, content string) {
	t.Helper()
	dir := filepath.Join(dataDir, "feedback", username, period)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func seedFeedback(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()

	writeFeedbackFile(t, dataDir, "alice", "2025-H1", "01-bob.md", `---
from: Bob Tran
relationship: peer
date: 2025-06-15
---

## Strengths
- Clear communication in design reviews
- Strong debugging instincts

## Growth Areas
- Could delegate more routine work

## Other Comments
Great quarter overall.
`)

	writeFeedbackFile(t, dataDir, "alice", "2025-H1", "02-carol.md", `---
from: Carol
relationship: manager
---

## Strengths
- Communication with stakeholders is clear

## Areas for Improvement
- Delegate more to junior engineers
`)

	// No frontmatter: attribution falls back to anonymous peer.
	writeFeedbackFile(t, dataDir, "alice", "2025-H2", "01-dan.md", `## Strengths
- Mentors new engineers well
`)

	return dataDir
}

type feedbackToolResult struct {
	MemberName     string `json:"member_name"`
	GitHubUsername string `json:"github_username"`
	Period         string `json:"period"`
	Feedback       []struct {
		File         string   `json:"file"`
		Period       string   `json:"period"`
		From         string   `json:"from"`
		Relationship string   `json:"relationship"`
		Date         string   `json:"date"`
		Strengths    []string `json:"strengths"`
		GrowthAreas  []string `json:"growth_areas"`
		Comments     string   `json:"comments"`
	} `json:"feedback"`
	Summary struct {
		TotalFeedbackCount    int            `json:"total_feedback_count"`
		PeriodsAvailable      []string       `json:"periods_available"`
		RelationshipBreakdown map[string]int `json:"relationship_breakdown"`
		AllStrengths          []string       `json:"all_strengths"`
		AllGrowthAreas        []string       `json:"all_growth_areas"`
		StrengthThemes        []struct {
			Keyword  string `json:"keyword"`
			Mentions int    `json:"mentions"`
		} `json:"strength_themes"`
		GrowthThemes []struct {
			Keyword  string `json:"keyword"`
			Mentions int    `json:"mentions"`
		} `json:"growth_themes"`
	} `json:"summary"`
	Note string `json:"note"`
}

func TestPeerFeedbackTool_Handle(t *testing.T) {
	tool := NewPeerFeedbackTool(testConfig(), feedback.NewReader(seedFeedback(t)))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "alice",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got feedbackToolResult
	decodeResult(t, result, &got)

	if got.MemberName != "Alice Nguyen" || got.Period != "all" {
		t.Errorf("member_name = %q, period = %q", got.MemberName, got.Period)
	}
	if len(got.Feedback) != 3 {
		t.Fatalf("feedback count = %d, want 3", len(got.Feedback))
	}

	first := got.Feedback[0]
	if first.From != "Bob Tran" || first.Relationship != "peer" || first.Date != "2025-06-15" {
		t.Errorf("first = %+v", first)
	}
	if first.Period != "2025-H1" || first.File != "01-bob.md" {
		t.Errorf("first file = %q period = %q", first.File, first.Period)
	}
	if len(first.Strengths) != 2 || first.Strengths[1] != "Strong debugging instincts" {
		t.Errorf("strengths = %v", first.Strengths)
	}
	if first.Comments != "Great quarter overall." {
		t.Errorf("comments = %q", first.Comments)
	}

	// "Areas for Improvement" maps onto growth areas.
	if got.Feedback[1].Relationship != "manager" || len(got.Feedback[1].GrowthAreas) != 1 {
		t.Errorf("second = %+v", got.Feedback[1])
	}

	last := got.Feedback[2]
	if last.From != "anonymous" || last.Relationship != "peer" || last.Period != "2025-H2" {
		t.Errorf("last = %+v", last)
	}

	s := got.Summary
	if s.TotalFeedbackCount != 3 {
		t.Errorf("total_feedback_count = %d", s.TotalFeedbackCount)
	}
	if !reflect.DeepEqual(s.PeriodsAvailable, []string{"2025-H1", "2025-H2"}) {
		t.Errorf("periods_available = %v", s.PeriodsAvailable)
	}
	if s.RelationshipBreakdown["peer"] != 2 || s.RelationshipBreakdown["manager"] != 1 {
		t.Errorf("relationship_breakdown = %v", s.RelationshipBreakdown)
	}
	if len(s.AllStrengths) != 4 || len(s.AllGrowthAreas) != 2 {
		t.Errorf("all_strengths = %d, all_growth_areas = %d", len(s.AllStrengths), len(s.AllGrowthAreas))
	}

	// "clear" and "communication" each appear twice; ties break by keyword.
	if len(s.StrengthThemes) != 2 ||
		s.StrengthThemes[0].Keyword != "clear" || s.StrengthThemes[0].Mentions != 2 ||
		s.StrengthThemes[1].Keyword != "communication" {
		t.Errorf("strength_themes = %+v", s.StrengthThemes)
	}
	if len(s.GrowthThemes) != 2 ||
		s.GrowthThemes[0].Keyword != "delegate" || s.GrowthThemes[1].Keyword != "more" {
		t.Errorf("growth_themes = %+v", s.GrowthThemes)
	}
	if got.Note != "" {
		t.Errorf("note = %q, want empty", got.Note)
	}
}

func TestPeerFeedbackTool_PeriodFilter(t *testing.T) {
	tool := NewPeerFeedbackTool(testConfig(), feedback.NewReader(seedFeedback(t)))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "alice",
		"period":          "2025-H1",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got feedbackToolResult
	decodeResult(t, result, &got)

	if got.Period != "2025-H1" || len(got.Feedback) != 2 {
		t.Errorf("period = %q, feedback count = %d", got.Period, len(got.Feedback))
	}
	for _, fb := range got.Feedback {
		if fb.Period != "2025-H1" {
			t.Errorf("entry period = %q", fb.Period)
		}
	}
}

func TestPeerFeedbackTool_UnknownPeriod(t *testing.T) {
	tool := NewPeerFeedbackTool(testConfig(), feedback.NewReader(seedFeedback(t)))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "alice",
		"period":          "2024-H9",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got feedbackToolResult
	decodeResult(t, result, &got)

	if len(got.Feedback) != 0 {
		t.Errorf("feedback count = %d, want 0", len(got.Feedback))
	}
	want := `no feedback found for period "2024-H9"; available periods: 2025-H1, 2025-H2`
	if got.Note != want {
		t.Errorf("note = %q, want %q", got.Note, want)
	}
}

func TestPeerFeedbackTool_NoFiles(t *testing.T) {
	reader := feedback.NewReader(t.TempDir())
	tool := NewPeerFeedbackTool(testConfig(), reader)

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "bob",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got feedbackToolResult
	decodeResult(t, result, &got)

	want := "no feedback files found; add markdown files under " + reader.UserDir("bob")
	if got.Note != want {
		t.Errorf("note = %q, want %q", got.Note, want)
	}
	if got.Summary.TotalFeedbackCount != 0 || len(got.Summary.PeriodsAvailable) != 0 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestPeerFeedbackTool_UnknownMember(t *testing.T) {
	tool := NewPeerFeedbackTool(testConfig(), feedback.NewReader(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "mallory",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); !strings.Contains(msg, "unknown team member: mallory") {
		t.Errorf("error = %q", msg)
	}
}
