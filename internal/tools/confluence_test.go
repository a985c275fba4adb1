package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/workpulse/workpulse/pkg/confluence"
)

func newConfluenceClient(t *testing.T, handler http.HandlerFunc) *confluence.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := confluence.NewClient(confluence.Config{
		BaseURL:   srv.URL,
		Email:     "me@example.com",
		APIToken:  "secret",
		SpaceKeys: []string{"ENG"},
		CacheTTL:  -1,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func confluenceItem(id, contentType, title string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"title": %q,
		"space": {"key": "ENG"},
		"history": {"createdDate": "2026-03-01T10:00:00Z"},
		"version": {"when": "2026-03-02T10:00:00Z"}
	}`, id, contentType, title)
}

func TestConfluenceContributionsTool_Handle(t *testing.T) {
	client := newConfluenceClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/content/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		cql := r.URL.Query().Get("cql")
		switch {
		case strings.Contains(cql, "type = page") && strings.Contains(cql, "creator"):
			fmt.Fprintf(w, `{"results":[%s]}`, confluenceItem("100", "page", "Design notes"))
		case strings.Contains(cql, "type = page") && strings.Contains(cql, "contributor"):
			// 100 was already counted as created and must be dropped.
			fmt.Fprintf(w, `{"results":[%s,%s]}`,
				confluenceItem("100", "page", "Design notes"),
				confluenceItem("200", "page", "Runbook"))
		case strings.Contains(cql, "type = blogpost"):
			fmt.Fprintf(w, `{"results":[%s]}`, confluenceItem("300", "blogpost", "Release recap"))
		case strings.Contains(cql, "type = comment"):
			fmt.Fprint(w, `{"results":[]}`)
		default:
			t.Errorf("unexpected cql %q", cql)
			fmt.Fprint(w, `{"results":[]}`)
		}
	})

	tool := NewConfluenceContributionsTool(testConfig(), client)
	tool.now = func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }

	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "alice",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	var got struct {
		MemberName   string   `json:"member_name"`
		StartDate    string   `json:"start_date"`
		EndDate      string   `json:"end_date"`
		SpaceKeys    []string `json:"space_keys"`
		PagesCreated []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"pages_created"`
		PagesUpdated []struct {
			ID string `json:"id"`
		} `json:"pages_updated"`
		BlogPosts []struct {
			ID string `json:"id"`
		} `json:"blogposts"`
		CommentsAdded []any `json:"comments_added"`
		Summary       struct {
			PagesCreatedCount int `json:"pages_created_count"`
			PagesUpdatedCount int `json:"pages_updated_count"`
			CommentsCount     int `json:"comments_count"`
			BlogPostsCount    int `json:"blogposts_count"`
		} `json:"summary"`
	}
	decodeResult(t, result, &got)

	if got.MemberName != "Alice Nguyen" {
		t.Errorf("member_name = %q", got.MemberName)
	}
	if got.StartDate != "2026-03-01" || got.EndDate != "2026-03-15" {
		t.Errorf("window = %s..%s", got.StartDate, got.EndDate)
	}
	if len(got.SpaceKeys) != 1 || got.SpaceKeys[0] != "ENG" {
		t.Errorf("space_keys = %v", got.SpaceKeys)
	}
	if len(got.PagesCreated) != 1 || got.PagesCreated[0].ID != "100" {
		t.Errorf("pages_created = %+v", got.PagesCreated)
	}
	if len(got.PagesUpdated) != 1 || got.PagesUpdated[0].ID != "200" {
		t.Errorf("pages_updated = %+v, want only 200", got.PagesUpdated)
	}
	if len(got.BlogPosts) != 1 || got.BlogPosts[0].ID != "300" {
		t.Errorf("blogposts = %+v", got.BlogPosts)
	}
	if len(got.CommentsAdded) != 0 {
		t.Errorf("comments_added = %v", got.CommentsAdded)
	}
	if got.Summary.PagesCreatedCount != 1 || got.Summary.PagesUpdatedCount != 1 ||
		got.Summary.CommentsCount != 0 || got.Summary.BlogPostsCount != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestConfluenceContributionsTool_FetchFailure(t *testing.T) {
	client := newConfluenceClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tool := NewConfluenceContributionsTool(testConfig(), client)
	result, err := tool.Handle(context.Background(), callReq(map[string]any{
		"github_username": "bob",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if msg := errorText(t, result); !strings.HasPrefix(msg, "failed to fetch Confluence data:") {
		t.Errorf("error = %q", msg)
	}
}
