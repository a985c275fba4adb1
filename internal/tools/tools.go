// Package tools implements the MCP tool surface: GitHub contribution and
// pulse queries, Jira planning views, Confluence activity, and the local
// goal, journal, and feedback stores.
//
// Every tool follows the same pattern: a struct holding its dependencies,
// a Definition that returns the mcp.Tool schema, and a Handle that renders
// its result as JSON text. Operational failures are reported through
// mcp.NewToolResultError so the calling model sees the message; a non-nil
// Go error is reserved for transport-level problems.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/workpulse/workpulse/internal/config"
)

const dayLayout = "2006-01-02"

// resolveUsername picks the explicit username when given, falling back to
// the configured self. Explicit usernames must be configured members.
func resolveUsername(cfg *config.Config, explicit string) (string, error) {
	if explicit != "" {
		if _, ok := cfg.Member(explicit); !ok {
			return "", fmt.Errorf("unknown user: %s", explicit)
		}
		return explicit, nil
	}
	if cfg.Self != "" {
		return cfg.Self, nil
	}
	return "", errors.New("no github_username provided and 'self' not configured")
}

// requireMember resolves a username that must be configured, listing the
// known usernames in the error so a typo is easy to correct.
func requireMember(cfg *config.Config, username string) (config.Member, error) {
	member, ok := cfg.Member(username)
	if !ok {
		return config.Member{}, fmt.Errorf("unknown team member: %s. Available: %s",
			username, strings.Join(cfg.AllUsernames(), ", "))
	}
	return member, nil
}

// dateRange resolves the since/until window from the request arguments.
// start_date overrides days; end_date defaults to now.
func dateRange(req mcp.CallToolRequest, defaultDays int, now time.Time) (since, until time.Time, err error) {
	if start := req.GetString("start_date", ""); start != "" {
		since, err = time.Parse(dayLayout, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD: %q", start)
		}
		until = now
		if end := req.GetString("end_date", ""); end != "" {
			until, err = time.Parse(dayLayout, end)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD: %q", end)
			}
		}
		if since.After(until) {
			return time.Time{}, time.Time{}, errors.New("start_date must be before end_date")
		}
		return since, until, nil
	}

	days := intArg(req, "days", defaultDays)
	if days < 1 || days > 365 {
		return time.Time{}, time.Time{}, errors.New("days must be between 1 and 365")
	}
	return now.AddDate(0, 0, -days), now, nil
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts an integer argument, returning def if the key is missing
// or not a number (JSON numbers decode as float64).
func intArg(req mcp.CallToolRequest, key string, def int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return def
	}
	return int(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, def bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return def
	}
	return v
}

// stringListArg extracts an array-of-strings argument, dropping empty and
// non-string elements.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatDay(t time.Time) string {
	return t.Format(dayLayout)
}
