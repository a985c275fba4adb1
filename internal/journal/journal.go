// Package journal stores personal reflections as per-day markdown files
// under {dataDir}/reflections/{user}/{YYYY-MM-DD}.md.
//
// Each entry is an optional "## Title" line, a "[HH:MM]" timestamp, free
// text, and optional "#tag" markers; entries within a day are separated
// by a horizontal rule.
package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/fsname"
	"github.com/workpulse/workpulse/pkg/logging"
)

const (
	// MaxEntriesPerDay caps how many entries one day file accepts.
	MaxEntriesPerDay = 50

	// PreviewLength bounds search result previews.
	PreviewLength = 200

	maxFileSize = 1 << 20 // 1 MB

	dayLayout = "2006-01-02"
)

var (
	separatorPattern = regexp.MustCompile(`\n---+\n`)
	timePattern      = regexp.MustCompile(`^\[(\d{2}:\d{2})\]`)
	tagPattern       = regexp.MustCompile(`#(\w+)`)
)

// Entry is one parsed journal entry.
type Entry struct {
	Time    string   `json:"time,omitempty"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Day groups the entries of one date.
type Day struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// Match is one search hit with a truncated content preview.
type Match struct {
	Date           string   `json:"date"`
	Time           string   `json:"time,omitempty"`
	Title          string   `json:"title,omitempty"`
	ContentPreview string   `json:"content_preview"`
	Tags           []string `json:"tags"`
}

// Store reads and appends journal files rooted at {dataDir}/reflections.
type Store struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore builds a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{
		dir:    filepath.Join(dataDir, "reflections"),
		logger: logging.NewLogger("journal"),
		now:    time.Now,
	}
}

func (s *Store) userDir(username string) (string, error) {
	safe, err := fsname.Sanitize(username)
	if err != nil {
		return "", fmt.Errorf("journal: %w", err)
	}
	return filepath.Join(s.dir, safe), nil
}

// Add appends an entry to today's file and returns the entry date and
// time. The per-day entry cap is enforced before writing.
func (s *Store) Add(username, title, content string, tags []string) (date, entryTime string, err error) {
	if strings.TrimSpace(content) == "" {
		return "", "", fmt.Errorf("journal: content cannot be empty")
	}

	dir, err := s.userDir(username)
	if err != nil {
		return "", "", err
	}

	now := s.now().UTC()
	date = now.Format(dayLayout)
	entryTime = now.Format("15:04")
	path := filepath.Join(dir, date+".md")

	exists := true
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		exists = false
	}
	if exists {
		existing := s.parseFile(path)
		if len(existing) >= MaxEntriesPerDay {
			return "", "", fmt.Errorf("journal: maximum of %d entries per day reached", MaxEntriesPerDay)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("journal: create directory: %w", err)
	}

	var b strings.Builder
	if exists {
		b.WriteString("\n---\n\n")
	}
	if title != "" {
		b.WriteString("## " + title + "\n")
	}
	b.WriteString("[" + entryTime + "]\n\n")
	b.WriteString(content)
	if len(tags) > 0 {
		marks := make([]string, len(tags))
		for i, tag := range tags {
			marks[i] = "#" + tag
		}
		b.WriteString("\n\n" + strings.Join(marks, " "))
	}
	b.WriteString("\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return "", "", fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return "", "", fmt.Errorf("journal: write %s: %w", path, err)
	}

	s.logger.Debug().Str("username", username).Str("date", date).Msg("Added journal entry")
	return date, entryTime, nil
}

// Range returns entries between since and until inclusive, grouped by
// date. When tags is non-empty an entry must carry at least one of them.
func (s *Store) Range(username string, since, until time.Time, tags []string) ([]Day, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return nil, err
	}

	days := []Day{}
	for _, file := range s.dayFiles(dir) {
		date, err := time.Parse(dayLayout, strings.TrimSuffix(filepath.Base(file), ".md"))
		if err != nil {
			s.logger.Warn().Str("file", file).Msg("Skipping journal file with invalid date name")
			continue
		}
		if dayBefore(date, since) || dayAfter(date, until) {
			continue
		}

		entries := s.parseFile(file)
		if len(tags) > 0 {
			entries = filterByTags(entries, tags)
		}
		if len(entries) > 0 {
			days = append(days, Day{Date: date.Format(dayLayout), Entries: entries})
		}
	}
	return days, nil
}

// Search scans entries on or after since for a case-insensitive query
// match in the title or content.
func (s *Store) Search(username, query string, since time.Time) ([]Match, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := []Match{}
	for _, file := range s.dayFiles(dir) {
		date, err := time.Parse(dayLayout, strings.TrimSuffix(filepath.Base(file), ".md"))
		if err != nil {
			continue
		}
		if dayBefore(date, since) {
			continue
		}

		for _, entry := range s.parseFile(file) {
			titleMatch := entry.Title != "" && strings.Contains(strings.ToLower(entry.Title), needle)
			contentMatch := strings.Contains(strings.ToLower(entry.Content), needle)
			if !titleMatch && !contentMatch {
				continue
			}

			preview := entry.Content
			if len(preview) > PreviewLength {
				preview = preview[:PreviewLength] + "..."
			}
			matches = append(matches, Match{
				Date:           date.Format(dayLayout),
				Time:           entry.Time,
				Title:          entry.Title,
				ContentPreview: preview,
				Tags:           entry.Tags,
			})
		}
	}
	return matches, nil
}

// dayFiles lists the user's day files in date order. A missing directory
// is an empty journal.
func (s *Store) dayFiles(dir string) []string {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil
	}
	sort.Strings(files)
	return files
}

// parseFile splits a day file into entries. Unreadable files are logged
// and treated as empty.
func (s *Store) parseFile(path string) []Entry {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.Size() > maxFileSize {
		s.logger.Warn().Str("path", path).Int64("size", info.Size()).Msg("Journal file exceeds size limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to read journal file")
		return nil
	}

	var entries []Entry
	for _, section := range separatorPattern.Split(string(data), -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		lines := strings.Split(section, "\n")
		var entry Entry
		i := 0
		if strings.HasPrefix(lines[i], "## ") {
			entry.Title = strings.TrimSpace(lines[i][3:])
			i++
		}
		if i < len(lines) {
			if m := timePattern.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
				entry.Time = m[1]
				i++
			}
		}
		entry.Content = strings.TrimSpace(strings.Join(lines[i:], "\n"))
		if entry.Content == "" {
			continue
		}
		entry.Tags = extractTags(entry.Content)
		entries = append(entries, entry)
	}
	return entries
}

// extractTags collects #tags in first-seen order.
func extractTags(content string) []string {
	tags := []string{}
	seen := map[string]struct{}{}
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

func filterByTags(entries []Entry, tags []string) []Entry {
	kept := entries[:0]
	for _, entry := range entries {
		if hasAnyTag(entry.Tags, tags) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// dayBefore reports whether date's day falls before t's day.
func dayBefore(date, t time.Time) bool {
	return date.Format(dayLayout) < t.UTC().Format(dayLayout)
}

func dayAfter(date, t time.Time) bool {
	return date.Format(dayLayout) > t.UTC().Format(dayLayout)
}
