package pagination

import (
	"context"
	"encoding/json"
)

// Page is one slice of an offset-paginated result set. Total is the size the
// API reported for the whole set, or -1 when the endpoint does not report one
// (GitHub sub-resources, for example).
type Page struct {
	Items []json.RawMessage
	Total int
}

// OffsetConfig drives Offset. Fetch is called with the absolute start index
// and the page size; it maps those onto whatever the endpoint expects
// (page numbers for GitHub, a start parameter for Confluence).
type OffsetConfig struct {
	// PageSize is the number of items requested per page (default 100).
	PageSize int
	// MaxItems caps the total items returned; 0 means unlimited.
	MaxItems int
	// Fetch retrieves the page beginning at start.
	Fetch func(ctx context.Context, start, limit int) (Page, error)
}

// Offset fetches pages sequentially until one of the stop conditions holds,
// checked in order after each page: item cap reached, page empty, reported
// total reached, short page.
func Offset(ctx context.Context, cfg OffsetConfig) ([]json.RawMessage, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	var items []json.RawMessage
	start := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := cfg.Fetch(ctx, start, cfg.PageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)

		if cfg.MaxItems > 0 && len(items) >= cfg.MaxItems {
			return items[:cfg.MaxItems], nil
		}
		if len(page.Items) == 0 {
			return items, nil
		}
		if page.Total >= 0 && start+len(page.Items) >= page.Total {
			return items, nil
		}
		if len(page.Items) < cfg.PageSize {
			return items, nil
		}
		start += len(page.Items)
	}
}
