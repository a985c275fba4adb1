// Package feedback reads peer feedback markdown files stored under
// {dataDir}/feedback/{user}/{period}/*.md.
//
// A file carries YAML-ish frontmatter (from, relationship, date) followed
// by "## Strengths", "## Growth Areas", and "## Other Comments" sections.
// Malformed files are logged and skipped.
package feedback

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/fsname"
	"github.com/workpulse/workpulse/pkg/logging"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	sectionPattern     = regexp.MustCompile(`\n##\s+`)
	bulletPattern      = regexp.MustCompile(`(?m)^[-*]\s*(.+)$`)
)

// Feedback is one parsed feedback file.
type Feedback struct {
	File         string   `json:"file"`
	Period       string   `json:"period"`
	From         string   `json:"from"`
	Relationship string   `json:"relationship"`
	Date         string   `json:"date,omitempty"`
	Strengths    []string `json:"strengths"`
	GrowthAreas  []string `json:"growth_areas"`
	Comments     string   `json:"comments"`
}

// Reader loads feedback files rooted at {dataDir}/feedback.
type Reader struct {
	dir    string
	logger zerolog.Logger
}

// NewReader builds a reader rooted at dataDir.
func NewReader(dataDir string) *Reader {
	return &Reader{
		dir:    filepath.Join(dataDir, "feedback"),
		logger: logging.NewLogger("feedback"),
	}
}

// UserDir returns the directory feedback files for a user are read from.
func (r *Reader) UserDir(username string) string {
	safe, err := fsname.Sanitize(username)
	if err != nil {
		return r.dir
	}
	return filepath.Join(r.dir, safe)
}

// Periods lists the review period directories available for a user,
// sorted. A missing user directory is an empty list.
func (r *Reader) Periods(username string) ([]string, error) {
	safe, err := fsname.Sanitize(username)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(r.dir, safe))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	periods := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			periods = append(periods, entry.Name())
		}
	}
	sort.Strings(periods)
	return periods, nil
}

// Read returns the feedback for a user. An empty period reads every
// available period; a period with no directory reads nothing.
func (r *Reader) Read(username, period string) ([]Feedback, error) {
	safe, err := fsname.Sanitize(username)
	if err != nil {
		return nil, err
	}

	available, err := r.Periods(username)
	if err != nil {
		return nil, err
	}

	periods := available
	if period != "" {
		periods = nil
		for _, p := range available {
			if p == period {
				periods = []string{p}
				break
			}
		}
	}

	all := []Feedback{}
	for _, p := range periods {
		files, err := filepath.Glob(filepath.Join(r.dir, safe, p, "*.md"))
		if err != nil {
			continue
		}
		sort.Strings(files)
		for _, file := range files {
			fb, ok := r.parseFile(file)
			if !ok {
				continue
			}
			fb.Period = p
			all = append(all, fb)
		}
	}
	return all, nil
}

func (r *Reader) parseFile(path string) (Feedback, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to read feedback file")
		return Feedback{}, false
	}

	fb := Feedback{
		File:         filepath.Base(path),
		From:         "anonymous",
		Relationship: "peer",
		Strengths:    []string{},
		GrowthAreas:  []string{},
	}

	content := string(data)
	if m := frontmatterPattern.FindStringSubmatch(content); m != nil {
		for _, line := range strings.Split(strings.TrimSpace(m[1]), "\n") {
			key, value, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "from":
				fb.From = value
			case "relationship":
				fb.Relationship = value
			case "date":
				fb.Date = value
			}
		}
		content = content[len(m[0]):]
	}

	for _, section := range sectionPattern.Split(content, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		lines := strings.SplitN(section, "\n", 2)
		header := strings.ToLower(strings.TrimSpace(lines[0]))
		body := ""
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}

		switch {
		case strings.Contains(header, "strength"):
			fb.Strengths = bullets(body)
		case strings.Contains(header, "growth"), strings.Contains(header, "area"), strings.Contains(header, "improvement"):
			fb.GrowthAreas = bullets(body)
		case strings.Contains(header, "comment"), strings.Contains(header, "other"):
			fb.Comments = body
		}
	}

	return fb, true
}

func bullets(body string) []string {
	items := []string{}
	for _, m := range bulletPattern.FindAllStringSubmatch(body, -1) {
		if item := strings.TrimSpace(m[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}
