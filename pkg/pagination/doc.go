// Package pagination walks paginated SaaS endpoints lazily.
//
// Two schemes cover every provider surface: offset (GitHub search and
// sub-resources, Confluence CQL) and cursor (Jira issue search). Both accept
// an optional item cap; once the cap is reached mid-page the page is
// truncated and no further request is issued.
//
// Example usage:
//
//	items, err := pagination.Offset(ctx, pagination.OffsetConfig{
//		PageSize: 100,
//		MaxItems: 500,
//		Fetch: func(ctx context.Context, start, limit int) (pagination.Page, error) {
//			return client.searchPage(ctx, query, start, limit)
//		},
//	})
//
// Item payloads stay json.RawMessage. Callers decode per item and decide
// whether a malformed record is fatal; the domain clients log and skip.
package pagination
