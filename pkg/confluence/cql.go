package confluence

import (
	"fmt"
	"strings"
	"time"
)

// EscapeCQL escapes a value for interpolation into a quoted CQL string.
// Backslashes are doubled before quotes are escaped so user input cannot
// break out of the quoted literal.
func EscapeCQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// spacesFilter restricts a query to the configured spaces,
// e.g. `space = "ENG" OR space = "DOCS"`.
func spacesFilter(keys []string) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf(`space = "%s"`, EscapeCQL(key))
	}
	return strings.Join(parts, " OR ")
}

// dateFilter bounds field to the window. A zero until leaves the window
// open-ended.
func dateFilter(field string, since, until time.Time) string {
	start := since.Format("2006-01-02")
	if until.IsZero() {
		return fmt.Sprintf(`%s >= "%s"`, field, start)
	}
	return fmt.Sprintf(`%s >= "%s" AND %s <= "%s"`, field, start, field, until.Format("2006-01-02"))
}

func contributionCQL(spaces []string, contentType, roleField, accountID, dateField string, since, until time.Time) string {
	return fmt.Sprintf(`(%s) AND type = %s AND %s = "%s" AND %s`,
		spacesFilter(spaces), contentType, roleField, EscapeCQL(accountID),
		dateFilter(dateField, since, until))
}

func pagesCreatedCQL(spaces []string, accountID string, since, until time.Time) string {
	return contributionCQL(spaces, "page", "creator", accountID, "created", since, until)
}

// pagesUpdatedCQL matches pages the user touched in the window. Confluence
// has no "last modified by" CQL field, so this uses contributor plus a
// lastmodified window; the caller drops pages already counted as created.
func pagesUpdatedCQL(spaces []string, accountID string, since, until time.Time) string {
	return contributionCQL(spaces, "page", "contributor", accountID, "lastmodified", since, until)
}

func blogPostsCQL(spaces []string, accountID string, since, until time.Time) string {
	return contributionCQL(spaces, "blogpost", "creator", accountID, "created", since, until)
}

func commentsCQL(spaces []string, accountID string, since, until time.Time) string {
	return contributionCQL(spaces, "comment", "creator", accountID, "created", since, until)
}
