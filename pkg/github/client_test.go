package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient points a client at the given handler with caching disabled
// so request counting stays visible.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Token:    "test-token",
		Org:      "acme",
		BaseURL:  srv.URL,
		CacheTTL: -1,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func searchItemJSON(number int, repo, createdAt, mergedAt string) string {
	merged := "null"
	if mergedAt != "" {
		merged = fmt.Sprintf(`{"url":"https://api.github.com/repos/acme/%s/pulls/%d","merged_at":%q}`, repo, number, mergedAt)
	} else {
		merged = fmt.Sprintf(`{"url":"https://api.github.com/repos/acme/%s/pulls/%d"}`, repo, number)
	}
	return fmt.Sprintf(`{
		"number": %d,
		"title": "PR %d",
		"state": "open",
		"html_url": "https://github.com/acme/%s/pull/%d",
		"repository_url": "https://api.github.com/repos/acme/%s",
		"created_at": %q,
		"user": {"login": "alice"},
		"pull_request": %s
	}`, number, number, repo, number, repo, createdAt, merged)
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid", config: Config{Token: "t", Org: "acme"}},
		{name: "missing token", config: Config{Org: "acme"}, wantErr: true},
		{name: "missing org", config: Config{Token: "t"}, wantErr: true},
		{name: "invalid org", config: Config{Token: "t", Org: "bad org!"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient error = %v, wantErr %v", err, tt.wantErr)
			}
			if client != nil {
				client.Close()
			}
		})
	}
}

func TestClient_SearchMergedPullRequests(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/issues" {
			t.Errorf("path = %s, want /search/issues", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprintf(w, `{"total_count":1,"items":[%s]}`,
			searchItemJSON(7, "widget", "2025-01-02T10:00:00Z", "2025-01-10T12:00:00Z"))
	})

	prs, err := client.SearchMergedPullRequests(context.Background(), "alice", date(2025, 1, 1), date(2025, 1, 14))
	if err != nil {
		t.Fatalf("SearchMergedPullRequests failed: %v", err)
	}

	wantQuery := "type:pr org:acme author:alice is:merged merged:2025-01-01..2025-01-14"
	if gotQuery != wantQuery {
		t.Errorf("q = %q, want %q", gotQuery, wantQuery)
	}

	if len(prs) != 1 {
		t.Fatalf("prs = %d, want 1", len(prs))
	}
	pr := prs[0]
	if pr.Number != 7 || pr.Repo != "widget" || pr.Author != "alice" {
		t.Errorf("pr = %+v, want number 7 repo widget author alice", pr)
	}
	if !pr.Merged || pr.MergedAt == nil {
		t.Error("pr should be marked merged with a timestamp")
	}
	if pr.Key() != (Key{Repo: "widget", Number: 7}) {
		t.Errorf("key = %v", pr.Key())
	}
}

func TestClient_SearchPaginatesByTotalCount(t *testing.T) {
	// 175 matches at page size 100: exactly two requests.
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := r.URL.Query().Get("page")

		count := 100
		if page == "2" {
			count = 75
		}
		items := make([]string, count)
		for i := range items {
			items[i] = searchItemJSON(requests*1000+i+1, "widget", "2025-01-02T10:00:00Z", "")
		}
		fmt.Fprintf(w, `{"total_count":175,"items":[%s]}`, strings.Join(items, ","))
	})

	prs, err := client.SearchPullRequests(context.Background(), "alice", date(2025, 1, 1), date(2025, 1, 14))
	if err != nil {
		t.Fatalf("SearchPullRequests failed: %v", err)
	}
	if len(prs) != 175 {
		t.Errorf("prs = %d, want 175", len(prs))
	}
	if requests != 2 {
		t.Errorf("requests = %d, want exactly 2", requests)
	}
}

func TestClient_SearchSkipsUnparseableItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		good := searchItemJSON(3, "widget", "2025-01-02T10:00:00Z", "")
		fmt.Fprintf(w, `{"total_count":2,"items":[%s,{"title":"missing number"}]}`, good)
	})

	prs, err := client.SearchPullRequests(context.Background(), "alice", date(2025, 1, 1), time.Time{})
	if err != nil {
		t.Fatalf("SearchPullRequests failed: %v", err)
	}
	if len(prs) != 1 {
		t.Errorf("prs = %d, want 1 (bad record skipped)", len(prs))
	}
}

func TestClient_SearchReviewsByUser_DedupesByPRURL(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		dup := searchItemJSON(9, "widget", "2025-02-03T08:00:00Z", "")
		fmt.Fprintf(w, `{"total_count":2,"items":[%s,%s]}`, dup, dup)
	})

	reviews, err := client.SearchReviewsByUser(context.Background(), "dave", date(2025, 2, 1), date(2025, 2, 28))
	if err != nil {
		t.Fatalf("SearchReviewsByUser failed: %v", err)
	}

	if !strings.Contains(gotQuery, "reviewed-by:dave") {
		t.Errorf("q = %q, want reviewed-by qualifier", gotQuery)
	}
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1 after dedupe", len(reviews))
	}
	rv := reviews[0]
	if rv.State != "REVIEWED" || rv.Author != "dave" || rv.PRNumber != 9 {
		t.Errorf("review = %+v", rv)
	}
}

func TestClient_GetPullRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widget/pulls/42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"additions":120,"deletions":30,"changed_files":6,"commits":4}`)
	})

	stats, err := client.GetPullRequest(context.Background(), "widget", 42)
	if err != nil {
		t.Fatalf("GetPullRequest failed: %v", err)
	}
	if stats.Additions != 120 || stats.Deletions != 30 || stats.ChangedFiles != 6 || stats.Commits != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClient_GetPullRequestFiles_ShortPageStop(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		count := 100
		if r.URL.Query().Get("page") == "2" {
			count = 40
		}
		files := make([]string, count)
		for i := range files {
			files[i] = fmt.Sprintf(`{"filename":"f%d.go","status":"modified","additions":1,"deletions":0}`, i)
		}
		fmt.Fprintf(w, "[%s]", strings.Join(files, ","))
	})

	files, err := client.GetPullRequestFiles(context.Background(), "widget", 42)
	if err != nil {
		t.Fatalf("GetPullRequestFiles failed: %v", err)
	}
	if len(files) != 140 {
		t.Errorf("files = %d, want 140", len(files))
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (short page stops)", requests)
	}
}

func TestClient_GetPullRequestTimeline_PreviewHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != timelineAccept {
			t.Errorf("Accept = %q, want preview media type", got)
		}
		fmt.Fprint(w, `[{"event":"review_requested","actor":{"login":"alice"},"created_at":"2025-01-05T09:00:00Z"}]`)
	})

	events, err := client.GetPullRequestTimeline(context.Background(), "widget", 42)
	if err != nil {
		t.Fatalf("GetPullRequestTimeline failed: %v", err)
	}
	if len(events) != 1 || events[0].Event != "review_requested" || events[0].Actor != "alice" {
		t.Errorf("events = %+v", events)
	}
}

func TestClient_GetPullRequestDiff(t *testing.T) {
	const diff = "diff --git a/main.go b/main.go\n+added line\n"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != diffAccept {
			t.Errorf("Accept = %q, want diff media type", got)
		}
		fmt.Fprint(w, diff)
	})

	got, err := client.GetPullRequestDiff(context.Background(), "widget", 42)
	if err != nil {
		t.Fatalf("GetPullRequestDiff failed: %v", err)
	}
	if got != diff {
		t.Errorf("diff = %q", got)
	}
}

func TestClient_BatchStats_PartialResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/pulls/404") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"additions":10,"deletions":2,"changed_files":1,"commits":1}`)
	})

	keys := []Key{
		{Repo: "widget", Number: 1},
		{Repo: "widget", Number: 404},
		{Repo: "gadget", Number: 2},
	}
	stats := client.BatchStats(context.Background(), keys)

	if len(stats) != 2 {
		t.Fatalf("stats = %d, want 2 (failed item omitted)", len(stats))
	}
	if _, ok := stats[Key{Repo: "widget", Number: 404}]; ok {
		t.Error("missing PR should be absent from results")
	}
	if stats[Key{Repo: "gadget", Number: 2}].Additions != 10 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClient_BatchTimelines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/timeline"):
			fmt.Fprint(w, `[{"event":"reviewed","actor":{"login":"bob"},"created_at":"2025-01-06T10:00:00Z"}]`)
		case strings.HasSuffix(r.URL.Path, "/reviews"):
			fmt.Fprint(w, `[{"state":"APPROVED","html_url":"https://github.com/acme/widget/pull/5#r1","submitted_at":"2025-01-06T10:00:00Z","user":{"login":"bob"}}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	result := client.BatchTimelines(context.Background(), []Key{{Repo: "widget", Number: 5}})
	if len(result) != 1 {
		t.Fatalf("result = %d, want 1", len(result))
	}

	ta := result[Key{Repo: "widget", Number: 5}]
	if len(ta.Timeline) != 1 || ta.Timeline[0].Event != "reviewed" {
		t.Errorf("timeline = %+v", ta.Timeline)
	}
	if len(ta.Reviews) != 1 || ta.Reviews[0].State != "APPROVED" || ta.Reviews[0].Author != "bob" {
		t.Errorf("reviews = %+v", ta.Reviews)
	}
}

func TestClient_CachedSearchHitsOnce(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"total_count":0,"items":[]}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Token: "t", Org: "acme", BaseURL: srv.URL, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	for i := 0; i < 2; i++ {
		if _, err := client.SearchOpenPullRequests(context.Background(), "alice"); err != nil {
			t.Fatalf("search #%d failed: %v", i+1, err)
		}
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (second served from cache)", requests)
	}

	stats := client.CacheStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("cache stats = %+v, want 1 hit 1 miss", stats)
	}
}

func TestClient_CurrentUser(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/user" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"login": "alice"}`)
	})

	for i := 0; i < 2; i++ {
		login, err := client.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("CurrentUser failed: %v", err)
		}
		if login != "alice" {
			t.Errorf("login = %q", login)
		}
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (credential checks are uncached)", requests)
	}
}
