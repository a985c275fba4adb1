package jira

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidKey marks issue or project keys rejected before query building.
var ErrInvalidKey = errors.New("jira: invalid key")

var (
	issueKeyPattern   = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)
)

// ValidateIssueKey rejects anything that is not a well-formed issue key
// (e.g. PROJ-123). Keys are embedded in JQL and request paths, so this runs
// before any query is built.
func ValidateIssueKey(key string) error {
	if !issueKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: issue key %q", ErrInvalidKey, key)
	}
	return nil
}

// ValidateProjectKey rejects anything that is not a well-formed project key
// (e.g. PROJ, INFRA).
func ValidateProjectKey(key string) error {
	if !projectKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: project key %q", ErrInvalidKey, key)
	}
	return nil
}

// EscapeJQL escapes a string for embedding in a quoted JQL value:
// backslashes first, then double quotes.
func EscapeJQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// quoteList renders pre-validated keys as a JQL in-list body.
func quoteList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = `"` + k + `"`
	}
	return strings.Join(quoted, ", ")
}

func initiativeEpicsJQL(initiativeKey string) string {
	return fmt.Sprintf(`parent = "%s" AND issuetype = Epic ORDER BY rank`, initiativeKey)
}

func epicChildrenJQL(epicKey string) string {
	return fmt.Sprintf(`"Epic Link" = "%s" OR parent = "%s" ORDER BY rank`, epicKey, epicKey)
}

func childrenForEpicsJQL(epicKeys []string) string {
	keys := quoteList(epicKeys)
	return fmt.Sprintf(`"Epic Link" in (%s) OR parent in (%s) ORDER BY rank`, keys, keys)
}

func userOpenIssuesJQL(accountID string, projectKeys []string) string {
	return fmt.Sprintf(`assignee = "%s" AND statusCategory != Done AND project in (%s) ORDER BY rank`,
		EscapeJQL(accountID), quoteList(projectKeys))
}
