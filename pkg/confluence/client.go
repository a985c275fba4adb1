// Package confluence reports a user's Confluence activity: pages created,
// pages updated, blog posts, and comments within a time window.
//
// All lookups run CQL searches against the Confluence Cloud REST API,
// scoped to the spaces configured on the client. Results are paginated
// with offset paging and cached by the shared request executor.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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
	searchPageSize = 25
	searchExpand   = "space,history,version"
)

// Config holds the settings for a Confluence client.
type Config struct {
	// BaseURL is the site wiki URL, e.g. https://yourcompany.atlassian.net/wiki.
	BaseURL string
	// Email and APIToken authenticate via basic auth.
	Email    string
	APIToken string
	// SpaceKeys restricts all searches to these spaces.
	SpaceKeys []string
	// CacheTTL controls response caching. Zero selects the 5 minute
	// default; a negative value disables caching.
	CacheTTL time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client queries the Confluence Cloud REST API.
type Client struct {
	webBase   string
	spaceKeys []string
	exec      *request.Executor
	logger    zerolog.Logger
	closeOnce sync.Once
}

// NewClient validates cfg and builds a Confluence client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("confluence: base URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("confluence: email and API token are required")
	}
	if len(cfg.SpaceKeys) == 0 {
		return nil, fmt.Errorf("confluence: at least one space key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	logger := logging.NewLogger("confluence")
	exec, err := request.New(request.Config{
		Provider:   "confluence",
		BaseURL:    baseURL,
		Policy:     request.PolicyRetryAfter,
		Cache:      cache.New(ttl),
		HTTPClient: cfg.HTTPClient,
		Logger:     &logger,
		Authorize: func(req *http.Request) {
			req.SetBasicAuth(cfg.Email, cfg.APIToken)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		webBase:   strings.TrimSuffix(baseURL, "/wiki"),
		spaceKeys: append([]string(nil), cfg.SpaceKeys...),
		exec:      exec,
		logger:    logger,
	}, nil
}

// SpaceKeys returns the spaces all searches are scoped to.
func (c *Client) SpaceKeys() []string {
	return append([]string(nil), c.spaceKeys...)
}

// CacheStats reports hit and miss counts for the response cache.
func (c *Client) CacheStats() cache.Stats {
	return c.exec.Cache().Stats()
}

// RateLimit reports the most recent rate limit state.
func (c *Client) RateLimit() ratelimit.State {
	return c.exec.RateLimit()
}

// Close releases the client's resources.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.exec.Close()
	})
}

// CurrentUser returns the display name of the authenticated user. The call
// is never cached so it always verifies live credentials.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var payload struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.exec.DoJSON(ctx, request.Options{Path: "/rest/api/user/current"}, &payload); err != nil {
		return "", err
	}
	return payload.DisplayName, nil
}

// GetUserContributions gathers everything the user authored in the window:
// pages created, pages updated (excluding ones counted as created), blog
// posts, and comments. accountID is an Atlassian account ID.
func (c *Client) GetUserContributions(ctx context.Context, accountID string, since, until time.Time) (Contributions, error) {
	contributions := Contributions{
		PagesCreated: []Content{},
		PagesUpdated: []Content{},
		BlogPosts:    []Content{},
		Comments:     []Content{},
	}

	created, err := c.searchContent(ctx, pagesCreatedCQL(c.spaceKeys, accountID, since, until))
	if err != nil {
		return contributions, fmt.Errorf("confluence: pages created: %w", err)
	}
	contributions.PagesCreated = created

	createdIDs := make(map[string]struct{}, len(created))
	for _, page := range created {
		createdIDs[page.ID] = struct{}{}
	}

	updated, err := c.searchContent(ctx, pagesUpdatedCQL(c.spaceKeys, accountID, since, until))
	if err != nil {
		return contributions, fmt.Errorf("confluence: pages updated: %w", err)
	}
	for _, page := range updated {
		if _, ok := createdIDs[page.ID]; ok {
			continue
		}
		contributions.PagesUpdated = append(contributions.PagesUpdated, page)
	}

	blogs, err := c.searchContent(ctx, blogPostsCQL(c.spaceKeys, accountID, since, until))
	if err != nil {
		return contributions, fmt.Errorf("confluence: blog posts: %w", err)
	}
	contributions.BlogPosts = blogs

	comments, err := c.searchContent(ctx, commentsCQL(c.spaceKeys, accountID, since, until))
	if err != nil {
		return contributions, fmt.Errorf("confluence: comments: %w", err)
	}
	contributions.Comments = comments

	c.logger.Debug().
		Str("account_id", accountID).
		Int("pages_created", len(contributions.PagesCreated)).
		Int("pages_updated", len(contributions.PagesUpdated)).
		Int("blogposts", len(contributions.BlogPosts)).
		Int("comments", len(contributions.Comments)).
		Msg("Collected contributions")

	return contributions, nil
}

// searchContent runs one CQL query to completion, following offset paging.
func (c *Client) searchContent(ctx context.Context, cql string) ([]Content, error) {
	items, err := pagination.Offset(ctx, pagination.OffsetConfig{
		PageSize: searchPageSize,
		Fetch: func(ctx context.Context, start, limit int) (pagination.Page, error) {
			params := url.Values{
				"cql":    {cql},
				"start":  {strconv.Itoa(start)},
				"limit":  {strconv.Itoa(limit)},
				"expand": {searchExpand},
			}
			var result searchResponse
			if err := c.exec.GetJSON(ctx, "/rest/api/content/search", params, &result); err != nil {
				return pagination.Page{}, err
			}
			return pagination.Page{Items: result.Results, Total: -1}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	contents := make([]Content, 0, len(items))
	for _, raw := range items {
		content, err := c.parseContent(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping unparseable content record")
			continue
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (c *Client) parseContent(raw json.RawMessage) (Content, error) {
	var item contentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Content{}, fmt.Errorf("decode content: %w", err)
	}
	if item.ID == "" {
		return Content{}, fmt.Errorf("content record has no id")
	}

	contentType := item.Type
	if contentType == "" {
		contentType = "page"
	}

	content := Content{
		ID:       item.ID,
		Type:     contentType,
		Title:    item.Title,
		SpaceKey: item.Space.Key,
		URL: fmt.Sprintf("%s/wiki/spaces/%s/%ss/%s",
			c.webBase, item.Space.Key, contentType, item.ID),
		Created: c.parseTimestamp(item.History.CreatedDate),
		Updated: c.parseTimestamp(item.Version.When),
	}
	return content, nil
}

func (c *Client) parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.logger.Warn().Str("value", value).Msg("Unparseable timestamp")
		return nil
	}
	return &ts
}
