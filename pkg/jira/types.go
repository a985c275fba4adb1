package jira

import (
	"encoding/json"
	"strconv"
	"time"
)

// Jira Cloud timestamp layouts.
const (
	timestampLayout = "2006-01-02T15:04:05.000-0700"
	dueDateLayout   = "2006-01-02"
)

// Issue is a Jira issue reduced to the fields the aggregator needs.
type Issue struct {
	Key            string     `json:"key"`
	Summary        string     `json:"summary"`
	IssueType      string     `json:"issue_type"`
	Status         string     `json:"status"`
	StatusCategory string     `json:"status_category"`
	AssigneeID     string     `json:"assignee_account_id,omitempty"`
	AssigneeName   string     `json:"assignee_name,omitempty"`
	StoryPoints    *float64   `json:"story_points,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ParentKey      string     `json:"parent_key,omitempty"`
	EpicLink       string     `json:"epic_link,omitempty"`
	Labels         []string   `json:"labels,omitempty"`
	URL            string     `json:"url"`
	Created        *time.Time `json:"created,omitempty"`
	Updated        *time.Time `json:"updated,omitempty"`
}

// Done reports whether the issue's status category is Done.
func (i Issue) Done() bool {
	return i.StatusCategory == "Done"
}

// Epic reports whether the issue is an epic.
func (i Issue) Epic() bool {
	return i.IssueType == "Epic"
}

// IssueUpdate describes an issue write. Empty fields are left unchanged.
type IssueUpdate struct {
	Summary     string
	Description string
}

// issueEnvelope is the wire shape of one issue. Fields stay raw because two
// of them have instance-specific custom field names.
type issueEnvelope struct {
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type searchJQLResponse struct {
	Issues        []json.RawMessage `json:"issues"`
	IsLast        *bool             `json:"isLast"`
	NextPageToken string            `json:"nextPageToken"`
}

// decodeField unmarshals one named field, reporting false when the field is
// absent, null, or malformed.
func decodeField(fields map[string]json.RawMessage, name string, out any) bool {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// parseEpicLink normalizes the legacy Epic Link field, which arrives either
// as a plain key string or as an object carrying a key.
func parseEpicLink(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Key
	}
	return ""
}

// parseStoryPoints coerces the story point estimate to a float. Some
// instances report it as a JSON number, others as a string.
func parseStoryPoints(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}
