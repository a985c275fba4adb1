package pagination

import (
	"context"
	"encoding/json"
)

// CursorPage is one slice of a cursor-paginated result set. Next carries the
// opaque continuation token; Last marks the final page explicitly (Jira sets
// isLast even when a token is present).
type CursorPage struct {
	Items []json.RawMessage
	Next  string
	Last  bool
}

// CursorConfig drives Cursor. Fetch is called with the continuation token
// from the previous page; the first call receives an empty token.
type CursorConfig struct {
	// PageSize is the number of items requested per page (default 50).
	PageSize int
	// MaxItems caps the total items returned; 0 means unlimited.
	MaxItems int
	// Fetch retrieves the page after token.
	Fetch func(ctx context.Context, token string, limit int) (CursorPage, error)
}

// Cursor fetches pages sequentially, following continuation tokens until the
// item cap is reached, the API marks the last page, or no token is returned.
func Cursor(ctx context.Context, cfg CursorConfig) ([]json.RawMessage, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	var items []json.RawMessage
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := cfg.Fetch(ctx, token, cfg.PageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		if cfg.MaxItems > 0 && len(items) >= cfg.MaxItems {
			return items[:cfg.MaxItems], nil
		}
		if page.Last || page.Next == "" {
			return items, nil
		}
		token = page.Next
	}
}
