// Package jira provides the Jira Cloud REST v3 client used to gather issue,
// epic, and initiative signal.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/pkg/cache"
	"github.com/workpulse/workpulse/pkg/logging"
	"github.com/workpulse/workpulse/pkg/pagination"
	"github.com/workpulse/workpulse/pkg/ratelimit"
	"github.com/workpulse/workpulse/pkg/request"
)

const (
	searchPageSize = 50

	// Default custom field ids on Jira Cloud. Company-managed instances
	// usually differ, so both are configurable.
	defaultStoryPointField = "customfield_10016"
	defaultEpicLinkField   = "customfield_10014"
)

// Config holds Jira client configuration.
type Config struct {
	// BaseURL is the site root, e.g. https://yoursite.atlassian.net.
	BaseURL string

	// Email and APIToken form the basic-auth pair.
	Email    string
	APIToken string

	// ProjectKeys scope user-issue queries.
	ProjectKeys []string

	// StoryPointField is the custom field carrying the estimate.
	StoryPointField string

	// EpicLinkField is the legacy Epic Link custom field.
	EpicLinkField string

	// CacheTTL for GET responses (default 5m, negative disables).
	CacheTTL time.Duration

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client talks to the Jira Cloud REST API v3. It is safe for concurrent
// use.
type Client struct {
	baseURL         string
	projectKeys     []string
	storyPointField string
	epicLinkField   string
	exec            *request.Executor
	logger          zerolog.Logger

	closeOnce sync.Once
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira: base URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("jira: email and API token are required")
	}
	for _, key := range cfg.ProjectKeys {
		if err := ValidateProjectKey(key); err != nil {
			return nil, err
		}
	}

	storyPointField := cfg.StoryPointField
	if storyPointField == "" {
		storyPointField = defaultStoryPointField
	}
	epicLinkField := cfg.EpicLinkField
	if epicLinkField == "" {
		epicLinkField = defaultEpicLinkField
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	logger := logging.NewLogger("jira")
	email, token := cfg.Email, cfg.APIToken

	exec, err := request.New(request.Config{
		Provider:   "jira",
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Policy:     request.PolicyRetryAfter,
		Cache:      cache.New(ttl),
		HTTPClient: cfg.HTTPClient,
		Logger:     &logger,
		Authorize: func(req *http.Request) {
			req.SetBasicAuth(email, token)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		projectKeys:     cfg.ProjectKeys,
		storyPointField: storyPointField,
		epicLinkField:   epicLinkField,
		exec:            exec,
		logger:          logger,
	}, nil
}

// ProjectKeys returns the configured project scope.
func (c *Client) ProjectKeys() []string {
	return c.projectKeys
}

// CacheStats reports the response cache counters.
func (c *Client) CacheStats() cache.Stats {
	return c.exec.Cache().Stats()
}

// RateLimit reports the last observed rate-limit state.
func (c *Client) RateLimit() ratelimit.State {
	return c.exec.RateLimit()
}

// Close releases idle connections and clears the cache. Safe to call more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.exec.Close()
	})
}

// Myself returns the display name of the authenticated user. The call is
// never cached so it always verifies live credentials.
func (c *Client) Myself(ctx context.Context) (string, error) {
	var payload struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.exec.DoJSON(ctx, request.Options{Path: "/rest/api/3/myself"}, &payload); err != nil {
		return "", err
	}
	return payload.DisplayName, nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (Issue, error) {
	if err := ValidateIssueKey(key); err != nil {
		return Issue{}, err
	}

	params := url.Values{"fields": {strings.Join(c.standardFields(), ",")}}
	payload, err := c.exec.Do(ctx, request.Options{
		Path:     "/rest/api/3/issue/" + key,
		Query:    params,
		UseCache: true,
	})
	if err != nil {
		return Issue{}, err
	}
	return c.parseIssue(payload)
}

// SearchIssues runs a JQL search with cursor pagination. maxResults caps the
// result count (0 means unlimited); once the cap is reached no further page
// is requested.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	items, err := pagination.Cursor(ctx, pagination.CursorConfig{
		PageSize: searchPageSize,
		MaxItems: maxResults,
		Fetch: func(ctx context.Context, token string, limit int) (pagination.CursorPage, error) {
			body := map[string]any{
				"jql":        jql,
				"maxResults": limit,
				"fields":     c.standardFields(),
			}
			if token != "" {
				body["nextPageToken"] = token
			}

			var result searchJQLResponse
			if err := c.exec.PostJSON(ctx, "/rest/api/3/search/jql", body, &result); err != nil {
				return pagination.CursorPage{}, err
			}

			// A missing isLast means last, matching the API contract.
			last := result.IsLast == nil || *result.IsLast
			return pagination.CursorPage{
				Items: result.Issues,
				Next:  result.NextPageToken,
				Last:  last,
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(items))
	for _, raw := range items {
		issue, err := c.parseIssue(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed issue")
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// GetInitiativeEpics returns the epics parented under an initiative.
func (c *Client) GetInitiativeEpics(ctx context.Context, initiativeKey string) ([]Issue, error) {
	if err := ValidateIssueKey(initiativeKey); err != nil {
		return nil, err
	}
	return c.SearchIssues(ctx, initiativeEpicsJQL(initiativeKey), 0)
}

// GetEpicChildren returns the issues under one epic, covering both the
// legacy Epic Link field and the parent field.
func (c *Client) GetEpicChildren(ctx context.Context, epicKey string) ([]Issue, error) {
	if err := ValidateIssueKey(epicKey); err != nil {
		return nil, err
	}
	return c.SearchIssues(ctx, epicChildrenJQL(epicKey), 0)
}

// GetChildrenForEpics fetches children for many epics in a single query and
// groups them by epic key (parent first, epic link as fallback). Every input
// key is present in the result, if only with an empty slice.
func (c *Client) GetChildrenForEpics(ctx context.Context, epicKeys []string) (map[string][]Issue, error) {
	if len(epicKeys) == 0 {
		return map[string][]Issue{}, nil
	}
	for _, key := range epicKeys {
		if err := ValidateIssueKey(key); err != nil {
			return nil, err
		}
	}

	children, err := c.SearchIssues(ctx, childrenForEpicsJQL(epicKeys), 0)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]Issue, len(epicKeys))
	for _, key := range epicKeys {
		grouped[key] = []Issue{}
	}
	for _, issue := range children {
		epicKey := issue.ParentKey
		if epicKey == "" {
			epicKey = issue.EpicLink
		}
		if _, ok := grouped[epicKey]; ok {
			grouped[epicKey] = append(grouped[epicKey], issue)
		}
	}
	return grouped, nil
}

// SearchUserOpenIssues returns the user's not-Done issues across the
// configured projects.
func (c *Client) SearchUserOpenIssues(ctx context.Context, accountID string) ([]Issue, error) {
	if len(c.projectKeys) == 0 {
		return nil, fmt.Errorf("jira: no project keys configured")
	}
	return c.SearchIssues(ctx, userOpenIssuesJQL(accountID, c.projectKeys), 0)
}

// UpdateIssue writes the given fields. A summary is sent as a plain string;
// a description is wrapped in an ADF document. Cached reads of the issue are
// invalidated on success.
func (c *Client) UpdateIssue(ctx context.Context, key string, update IssueUpdate) error {
	if err := ValidateIssueKey(key); err != nil {
		return err
	}

	fields := map[string]any{}
	if update.Summary != "" {
		fields["summary"] = update.Summary
	}
	if update.Description != "" {
		fields["description"] = ADFDocument(update.Description)
	}
	if len(fields) == 0 {
		return fmt.Errorf("jira: nothing to update for %s", key)
	}

	path := "/rest/api/3/issue/" + key
	if err := c.exec.PutJSON(ctx, path, map[string]any{"fields": fields}); err != nil {
		return err
	}

	c.exec.Cache().InvalidatePrefix(path)
	c.logger.Info().Str("issue", key).Msg("Issue updated")
	return nil
}

func (c *Client) standardFields() []string {
	return []string{
		"summary", "issuetype", "status", "assignee", "duedate",
		"parent", "labels", "created", "updated",
		c.storyPointField,
		c.epicLinkField,
	}
}

// parseIssue converts the wire shape into an Issue. A missing key is a
// record-level error; list operations log and skip it.
func (c *Client) parseIssue(raw json.RawMessage) (Issue, error) {
	var env issueEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Issue{}, err
	}
	if env.Key == "" {
		return Issue{}, fmt.Errorf("issue missing required key field")
	}
	f := env.Fields

	issue := Issue{
		Key: env.Key,
		URL: c.baseURL + "/browse/" + env.Key,
	}
	decodeField(f, "summary", &issue.Summary)
	decodeField(f, "labels", &issue.Labels)

	var named struct {
		Name string `json:"name"`
	}
	if decodeField(f, "issuetype", &named) {
		issue.IssueType = named.Name
	}

	var status struct {
		Name           string `json:"name"`
		StatusCategory struct {
			Name string `json:"name"`
		} `json:"statusCategory"`
	}
	if decodeField(f, "status", &status) {
		issue.Status = status.Name
		issue.StatusCategory = status.StatusCategory.Name
	}

	var assignee struct {
		AccountID   string `json:"accountId"`
		DisplayName string `json:"displayName"`
	}
	if decodeField(f, "assignee", &assignee) {
		issue.AssigneeID = assignee.AccountID
		issue.AssigneeName = assignee.DisplayName
	}

	var parent struct {
		Key string `json:"key"`
	}
	if decodeField(f, "parent", &parent) {
		issue.ParentKey = parent.Key
	}

	issue.EpicLink = parseEpicLink(f[c.epicLinkField])
	issue.StoryPoints = parseStoryPoints(f[c.storyPointField])

	issue.Created = c.parseTimestamp(f, "created", timestampLayout)
	issue.Updated = c.parseTimestamp(f, "updated", timestampLayout)
	issue.DueDate = c.parseTimestamp(f, "duedate", dueDateLayout)

	return issue, nil
}

func (c *Client) parseTimestamp(fields map[string]json.RawMessage, name, layout string) *time.Time {
	var value string
	if !decodeField(fields, name, &value) || value == "" {
		return nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		c.logger.Warn().Str("field", name).Str("value", value).Msg("Unparseable timestamp")
		return nil
	}
	return &t
}
