package jira

import "strings"

// ADFDoc is a minimal Atlassian Document Format body, the shape Jira Cloud
// requires for rich-text fields like description.
type ADFDoc struct {
	Version int       `json:"version"`
	Type    string    `json:"type"`
	Content []ADFNode `json:"content"`
}

// ADFNode is one document node. Text nodes carry text; block nodes carry
// children.
type ADFNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []ADFNode `json:"content,omitempty"`
}

// ADFDocument wraps plain text in a document, one paragraph per non-empty
// line.
func ADFDocument(text string) ADFDoc {
	var content []ADFNode
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		content = append(content, ADFNode{
			Type: "paragraph",
			Content: []ADFNode{
				{Type: "text", Text: line},
			},
		})
	}
	if content == nil {
		content = []ADFNode{{Type: "paragraph"}}
	}

	return ADFDoc{
		Version: 1,
		Type:    "doc",
		Content: content,
	}
}
