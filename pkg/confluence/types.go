package confluence

import (
	"encoding/json"
	"time"
)

// Content is one Confluence content record (page, blogpost, or comment).
type Content struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	SpaceKey string     `json:"space_key"`
	URL      string     `json:"url"`
	Created  *time.Time `json:"created,omitempty"`
	Updated  *time.Time `json:"updated,omitempty"`
}

// Contributions groups a user's content activity over a window. Pages the
// user both created and updated count once, under PagesCreated.
type Contributions struct {
	PagesCreated []Content `json:"pages_created"`
	PagesUpdated []Content `json:"pages_updated"`
	BlogPosts    []Content `json:"blogposts"`
	Comments     []Content `json:"comments"`
}

// Total counts all contributions.
func (c Contributions) Total() int {
	return len(c.PagesCreated) + len(c.PagesUpdated) + len(c.BlogPosts) + len(c.Comments)
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type contentItem struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	History struct {
		CreatedDate string `json:"createdDate"`
	} `json:"history"`
	Version struct {
		When string `json:"when"`
	} `json:"version"`
}
