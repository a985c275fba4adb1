package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/journal"
)

// AddJournalTool implements add_journal_entry.
type AddJournalTool struct {
	cfg   *config.Config
	store *journal.Store
}

// NewAddJournalTool builds the tool.
func NewAddJournalTool(cfg *config.Config, store *journal.Store) *AddJournalTool {
	return &AddJournalTool{cfg: cfg, store: store}
}

// Definition returns the MCP tool schema.
func (t *AddJournalTool) Definition() mcp.Tool {
	return mcp.NewTool("add_journal_entry",
		mcp.WithDescription("Add a personal reflection or journal entry. Entries are stored with today's date."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The journal entry content (markdown supported)"),
		),
		mcp.WithString("title",
			mcp.Description("Optional title for the entry"),
		),
		mcp.WithArray("tags",
			mcp.Description("Optional tags for categorization. Examples: 'wins', 'learning', 'blockers'"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type addJournalResult struct {
	Success        bool   `json:"success"`
	GitHubUsername string `json:"github_username"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

// Handle appends the entry to today's file.
func (t *AddJournalTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	date, entryTime, err := t.store.Add(username,
		req.GetString("title", ""),
		req.GetString("content", ""),
		stringListArg(req, "tags"),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(addJournalResult{
		Success:        true,
		GitHubUsername: username,
		Date:           date,
		Time:           entryTime,
	})
}

// JournalEntriesTool implements get_journal_entries.
type JournalEntriesTool struct {
	cfg   *config.Config
	store *journal.Store
	now   func() time.Time
}

// NewJournalEntriesTool builds the tool.
func NewJournalEntriesTool(cfg *config.Config, store *journal.Store) *JournalEntriesTool {
	return &JournalEntriesTool{cfg: cfg, store: store, now: time.Now}
}

// Definition returns the MCP tool schema.
func (t *JournalEntriesTool) Definition() mcp.Tool {
	return mcp.NewTool("get_journal_entries",
		mcp.WithDescription("Get journal entries within a date range."),
		mcp.WithNumber("days",
			mcp.Description("Number of days to look back (default: 30, max: 365)"),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date in YYYY-MM-DD format. Overrides 'days'. Example: '2026-01-01'"),
		),
		mcp.WithString("end_date",
			mcp.Description("End date in YYYY-MM-DD format. Defaults to today. Example: '2026-01-31'"),
		),
		mcp.WithArray("tags",
			mcp.Description("Filter by tags (any match)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type journalEntriesResult struct {
	GitHubUsername string        `json:"github_username"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	EntriesByDate  []journal.Day `json:"entries_by_date"`
	Count          int           `json:"count"`
}

// Handle reads the window, optionally filtered by tags.
func (t *JournalEntriesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	since, until, err := dateRange(req, 30, t.now().UTC())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	days, err := t.store.Range(username, since, until, stringListArg(req, "tags"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	count := 0
	for _, day := range days {
		count += len(day.Entries)
	}

	return jsonResult(journalEntriesResult{
		GitHubUsername: username,
		StartDate:      formatDay(since),
		EndDate:        formatDay(until),
		EntriesByDate:  days,
		Count:          count,
	})
}

// JournalSearchTool implements search_journal.
type JournalSearchTool struct {
	cfg   *config.Config
	store *journal.Store
	now   func() time.Time
}

// NewJournalSearchTool builds the tool.
func NewJournalSearchTool(cfg *config.Config, store *journal.Store) *JournalSearchTool {
	return &JournalSearchTool{cfg: cfg, store: store, now: time.Now}
}

// Definition returns the MCP tool schema.
func (t *JournalSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_journal",
		mcp.WithDescription("Search journal entries by keyword."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (case-insensitive)"),
		),
		mcp.WithNumber("days",
			mcp.Description("Limit search to last N days (default: 90, max: 365)"),
		),
		mcp.WithString("github_username",
			mcp.Description("GitHub username. If omitted and 'self' is configured, uses self."),
		),
	)
}

type journalSearchResult struct {
	GitHubUsername string          `json:"github_username"`
	Query          string          `json:"query"`
	Matches        []journal.Match `json:"matches"`
	Count          int             `json:"count"`
}

// Handle searches titles and contents case-insensitively.
func (t *JournalSearchTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username, err := resolveUsername(t.cfg, req.GetString("github_username", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	days := intArg(req, "days", 90)
	if days < 1 || days > 365 {
		return mcp.NewToolResultError("days must be between 1 and 365"), nil
	}

	since := t.now().UTC().AddDate(0, 0, -days)
	matches, err := t.store.Search(username, query, since)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(journalSearchResult{
		GitHubUsername: username,
		Query:          query,
		Matches:        matches,
		Count:          len(matches),
	})
}
