package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key generates a deterministic cache key for a request.
// Format: path:param1=value1:param2=value2
//
// Query parameters are sorted by name, so two requests that differ only in
// parameter order map to the same key. Multi-valued parameters join their
// values with commas.
//
// Example:
//
//	Key("/search/issues", url.Values{"q": {"author:alice"}, "page": {"1"}})
//	// "/search/issues:page=1:q=author:alice"
func Key(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(path)
	for _, name := range names {
		values := params[name]
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, ","))
	}

	return b.String()
}
