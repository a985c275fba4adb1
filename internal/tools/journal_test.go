package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/workpulse/workpulse/internal/journal"
)

func TestAddJournalTool_Handle(t *testing.T) {
	store := journal.NewStore(t.TempDir())
	add := NewAddJournalTool(testConfig(), store)

	result, err := add.Handle(context.Background(), callReq(map[string]any{
		"title":   "Standup notes",
		"content": "Paired with Bob on the cache layer.",
		"tags":    []any{"wins", "pairing"},
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var added struct {
		Success        bool   `json:"success"`
		GitHubUsername string `json:"github_username"`
		Date           string `json:"date"`
		Time           string `json:"time"`
	}
	decodeResult(t, result, &added)

	if !added.Success || added.GitHubUsername != "alice" {
		t.Errorf("success = %v, github_username = %q", added.Success, added.GitHubUsername)
	}
	if _, err := time.Parse("2006-01-02", added.Date); err != nil {
		t.Errorf("date = %q: %v", added.Date, err)
	}
	if _, err := time.Parse("15:04", added.Time); err != nil {
		t.Errorf("time = %q: %v", added.Time, err)
	}

	// Second entry the same day appends after a separator.
	result, err = add.Handle(context.Background(), callReq(map[string]any{
		"content": "Shipped the paginator fix.",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &added)

	entries := NewJournalEntriesTool(testConfig(), store)
	result, err = entries.Handle(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		EntriesByDate []struct {
			Date    string `json:"date"`
			Entries []struct {
				Title   string   `json:"title"`
				Content string   `json:"content"`
				Tags    []string `json:"tags"`
			} `json:"entries"`
		} `json:"entries_by_date"`
		Count int `json:"count"`
	}
	decodeResult(t, result, &got)

	if got.Count != 2 || len(got.EntriesByDate) != 1 {
		t.Fatalf("count = %d, days = %d", got.Count, len(got.EntriesByDate))
	}
	day := got.EntriesByDate[0]
	if day.Date != added.Date {
		t.Errorf("date = %q, want %q", day.Date, added.Date)
	}
	if day.Entries[0].Title != "Standup notes" {
		t.Errorf("title = %q", day.Entries[0].Title)
	}
	if !strings.Contains(day.Entries[0].Content, "cache layer") {
		t.Errorf("content = %q", day.Entries[0].Content)
	}
	if len(day.Entries[0].Tags) != 2 || day.Entries[0].Tags[0] != "wins" {
		t.Errorf("tags = %v", day.Entries[0].Tags)
	}
	if day.Entries[1].Title != "" || !strings.Contains(day.Entries[1].Content, "paginator fix") {
		t.Errorf("second entry = %+v", day.Entries[1])
	}
}

func TestAddJournalTool_EmptyContent(t *testing.T) {
	tool := NewAddJournalTool(testConfig(), journal.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{"content": "   "}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "journal: content cannot be empty" {
		t.Errorf("error = %q", msg)
	}
}

func TestJournalEntriesTool_TagFilter(t *testing.T) {
	store := journal.NewStore(t.TempDir())
	if _, _, err := store.Add("alice", "", "Landed the release.", []string{"wins"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, _, err := store.Add("alice", "", "Waiting on infra review.", []string{"blockers"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tool := NewJournalEntriesTool(testConfig(), store)

	var got struct {
		EntriesByDate []struct {
			Entries []struct {
				Content string `json:"content"`
			} `json:"entries"`
		} `json:"entries_by_date"`
		Count int `json:"count"`
	}

	result, err := tool.Handle(context.Background(), callReq(map[string]any{"tags": []any{"wins"}}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Count != 1 {
		t.Fatalf("count = %d, want 1", got.Count)
	}
	if !strings.Contains(got.EntriesByDate[0].Entries[0].Content, "release") {
		t.Errorf("entry = %+v", got.EntriesByDate[0].Entries[0])
	}

	// Days with no matching entries are dropped entirely.
	result, err = tool.Handle(context.Background(), callReq(map[string]any{"tags": []any{"oncall"}}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Count != 0 || len(got.EntriesByDate) != 0 {
		t.Errorf("count = %d, days = %d, want none", got.Count, len(got.EntriesByDate))
	}
}

func TestJournalSearchTool_Handle(t *testing.T) {
	store := journal.NewStore(t.TempDir())
	date, _, err := store.Add("alice", "Deploy retro", "Fixed the flaky deploy pipeline.", []string{"learning"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tool := NewJournalSearchTool(testConfig(), store)
	result, err := tool.Handle(context.Background(), callReq(map[string]any{"query": "FLAKY"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		Query   string `json:"query"`
		Matches []struct {
			Date           string   `json:"date"`
			Title          string   `json:"title"`
			ContentPreview string   `json:"content_preview"`
			Tags           []string `json:"tags"`
		} `json:"matches"`
		Count int `json:"count"`
	}
	decodeResult(t, result, &got)

	if got.Count != 1 || len(got.Matches) != 1 {
		t.Fatalf("count = %d", got.Count)
	}
	m := got.Matches[0]
	if m.Date != date || m.Title != "Deploy retro" {
		t.Errorf("match = %+v", m)
	}
	if !strings.Contains(m.ContentPreview, "flaky deploy") {
		t.Errorf("preview = %q", m.ContentPreview)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "learning" {
		t.Errorf("tags = %v", m.Tags)
	}

	// Title matches count too.
	result, err = tool.Handle(context.Background(), callReq(map[string]any{"query": "retro"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result, &got)
	if got.Count != 1 {
		t.Errorf("title search count = %d, want 1", got.Count)
	}
}

func TestJournalSearchTool_RequiresQuery(t *testing.T) {
	tool := NewJournalSearchTool(testConfig(), journal.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "query is required" {
		t.Errorf("error = %q", msg)
	}
}

func TestJournalSearchTool_DaysOutOfRange(t *testing.T) {
	tool := NewJournalSearchTool(testConfig(), journal.NewStore(t.TempDir()))

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"query": "anything",
		"days":  float64(400),
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); msg != "days must be between 1 and 365" {
		t.Errorf("error = %q", msg)
	}
}
