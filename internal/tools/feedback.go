package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/feedback"
)

var themeWordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// PeerFeedbackTool implements get_peer_feedback.
type PeerFeedbackTool struct {
	cfg    *config.Config
	reader *feedback.Reader
}

// NewPeerFeedbackTool builds the tool.
func NewPeerFeedbackTool(cfg *config.Config, reader *feedback.Reader) *PeerFeedbackTool {
	return &PeerFeedbackTool{cfg: cfg, reader: reader}
}

// Definition returns the MCP tool schema.
func (t *PeerFeedbackTool) Definition() mcp.Tool {
	return mcp.NewTool("get_peer_feedback",
		mcp.WithDescription(
			"Get structured peer feedback for a team member from feedback files. "+
				"Reads feedback from feedback/{github_username}/{period}/*.md files.",
		),
		mcp.WithString("github_username",
			mcp.Required(),
			mcp.Description("GitHub username of the team member"),
		),
		mcp.WithString("period",
			mcp.Description("Review period (e.g., '2025-H1', '2025-Q4', '2025'). If not provided, returns all available feedback."),
		),
	)
}

type theme struct {
	Keyword  string `json:"keyword"`
	Mentions int    `json:"mentions"`
}

type feedbackSummary struct {
	TotalFeedbackCount    int            `json:"total_feedback_count"`
	PeriodsAvailable      []string       `json:"periods_available"`
	RelationshipBreakdown map[string]int `json:"relationship_breakdown"`
	AllStrengths          []string       `json:"all_strengths"`
	AllGrowthAreas        []string       `json:"all_growth_areas"`
	StrengthThemes        []theme        `json:"strength_themes"`
	GrowthThemes          []theme        `json:"growth_themes"`
}

type feedbackResult struct {
	MemberName     string              `json:"member_name"`
	GitHubUsername string              `json:"github_username"`
	Period         string              `json:"period"`
	Feedback       []feedback.Feedback `json:"feedback"`
	Summary        feedbackSummary     `json:"summary"`
	Note           string              `json:"note,omitempty"`
}

// Handle reads one period or all, and aggregates strengths, growth areas,
// and recurring themes across the files.
func (t *PeerFeedbackTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := req.GetString("github_username", "")
	member, err := requireMember(t.cfg, username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	period := req.GetString("period", "")

	available, err := t.reader.Periods(username)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries, err := t.reader.Read(username, period)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := feedbackResult{
		MemberName:     member.Name,
		GitHubUsername: username,
		Period:         period,
		Feedback:       entries,
	}
	if period == "" {
		result.Period = "all"
	}

	allStrengths := []string{}
	allGrowthAreas := []string{}
	breakdown := map[string]int{}
	for _, fb := range entries {
		allStrengths = append(allStrengths, fb.Strengths...)
		allGrowthAreas = append(allGrowthAreas, fb.GrowthAreas...)
		breakdown[fb.Relationship]++
	}

	result.Summary = feedbackSummary{
		TotalFeedbackCount:    len(entries),
		PeriodsAvailable:      available,
		RelationshipBreakdown: breakdown,
		AllStrengths:          allStrengths,
		AllGrowthAreas:        allGrowthAreas,
		StrengthThemes:        findThemes(allStrengths),
		GrowthThemes:          findThemes(allGrowthAreas),
	}

	if len(entries) == 0 {
		switch {
		case len(available) == 0:
			result.Note = fmt.Sprintf("no feedback files found; add markdown files under %s", t.reader.UserDir(username))
		case period != "":
			result.Note = fmt.Sprintf("no feedback found for period %q; available periods: %s",
				period, strings.Join(available, ", "))
		}
	}

	return jsonResult(result)
}

// findThemes runs a frequency count over words of four or more letters,
// keeping the top five words mentioned at least twice. Ties break by
// keyword so the output is stable.
func findThemes(items []string) []theme {
	freq := map[string]int{}
	for _, item := range items {
		for _, word := range themeWordPattern.FindAllString(strings.ToLower(item), -1) {
			freq[word]++
		}
	}

	themes := []theme{}
	for word, count := range freq {
		if count >= 2 {
			themes = append(themes, theme{Keyword: word, Mentions: count})
		}
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Mentions != themes[j].Mentions {
			return themes[i].Mentions > themes[j].Mentions
		}
		return themes[i].Keyword < themes[j].Keyword
	})
	if len(themes) > 5 {
		themes = themes[:5]
	}
	return themes
}
