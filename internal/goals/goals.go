// Package goals persists per-user goal documents as JSON files under the
// data directory. Writes are atomic (temp file plus rename) so a crash
// never leaves a half-written document behind.
package goals

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/workpulse/workpulse/internal/fsname"
	"github.com/workpulse/workpulse/pkg/logging"
)

const (
	fileVersion = "1.0"

	// MaxActiveGoals bounds the number of concurrently active goals per
	// user; completed and archived goals do not count.
	MaxActiveGoals = 100

	maxIDLength = 50
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// KeyResult is one measurable outcome attached to a goal.
type KeyResult struct {
	Description string `json:"description"`
	Target      string `json:"target,omitempty"`
	Current     string `json:"current,omitempty"`
	Status      string `json:"status"`
}

// ProgressNote is a dated free-text progress record.
type ProgressNote struct {
	Date string `json:"date"`
	Note string `json:"note"`
}

// Goal is one tracked goal. Status is active, completed, or archived.
type Goal struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Category      string         `json:"category"`
	TargetDate    string         `json:"target_date,omitempty"`
	KeyResults    []KeyResult    `json:"key_results"`
	Status        string         `json:"status"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
	ProgressNotes []ProgressNote `json:"progress_notes"`
}

// NewGoal carries the caller-settable fields for Add.
type NewGoal struct {
	Title       string
	Description string
	Category    string
	TargetDate  string
	KeyResults  []KeyResult
}

// KeyResultUpdate addresses one key result by position. Nil fields are
// left unchanged.
type KeyResultUpdate struct {
	Index   int
	Current *string
	Status  *string
}

// ProgressUpdate describes an UpdateProgress call. Empty fields are
// left unchanged.
type ProgressUpdate struct {
	Status       string
	ProgressNote string
	KeyResults   []KeyResultUpdate
}

// Store reads and writes goal documents rooted at {dataDir}/goals.
type Store struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore builds a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{
		dir:    filepath.Join(dataDir, "goals"),
		logger: logging.NewLogger("goals"),
		now:    time.Now,
	}
}

func (s *Store) filePath(username string) (string, error) {
	safe, err := fsname.Sanitize(username)
	if err != nil {
		return "", fmt.Errorf("goals: %w", err)
	}
	return filepath.Join(s.dir, safe+"-goals.json"), nil
}

// List returns the user's goals, filtered by status unless status is
// "all". A missing file is an empty list.
func (s *Store) List(username, status string) ([]Goal, error) {
	goals, err := s.load(username)
	if err != nil {
		return nil, err
	}
	if status == "" || status == "all" {
		return goals, nil
	}
	filtered := goals[:0]
	for _, g := range goals {
		if g.Status == status {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// Get returns one goal by id.
func (s *Store) Get(username, goalID string) (Goal, error) {
	goals, err := s.load(username)
	if err != nil {
		return Goal{}, err
	}
	for _, g := range goals {
		if g.ID == goalID {
			return g, nil
		}
	}
	return Goal{}, fmt.Errorf("goals: goal not found: %s", goalID)
}

// Add creates a goal with a slug id derived from the title. Duplicate
// titles get a numeric suffix. The active-goal cap is enforced here.
func (s *Store) Add(username string, ng NewGoal) (Goal, error) {
	id, err := generateID(ng.Title)
	if err != nil {
		return Goal{}, err
	}

	goals, err := s.load(username)
	if err != nil {
		return Goal{}, err
	}

	active := 0
	for _, g := range goals {
		if g.Status == "active" {
			active++
		}
	}
	if active >= MaxActiveGoals {
		return Goal{}, fmt.Errorf("goals: maximum of %d active goals reached; archive or complete some goals first", MaxActiveGoals)
	}

	existing := make(map[string]struct{}, len(goals))
	for _, g := range goals {
		existing[g.ID] = struct{}{}
	}
	if _, taken := existing[id]; taken {
		suffix := 1
		for {
			candidate := fmt.Sprintf("%s-%d", id, suffix)
			if _, taken := existing[candidate]; !taken {
				id = candidate
				break
			}
			suffix++
		}
	}

	category := ng.Category
	if category == "" {
		category = "general"
	}
	keyResults := make([]KeyResult, 0, len(ng.KeyResults))
	for _, kr := range ng.KeyResults {
		if kr.Description == "" {
			continue
		}
		if kr.Status == "" {
			kr.Status = "pending"
		}
		keyResults = append(keyResults, kr)
	}

	now := s.now().UTC()
	goal := Goal{
		ID:            id,
		Title:         ng.Title,
		Description:   ng.Description,
		Category:      category,
		TargetDate:    ng.TargetDate,
		KeyResults:    keyResults,
		Status:        "active",
		CreatedAt:     &now,
		UpdatedAt:     &now,
		ProgressNotes: []ProgressNote{},
	}

	goals = append(goals, goal)
	if err := s.save(username, goals); err != nil {
		return Goal{}, err
	}

	s.logger.Info().Str("username", username).Str("goal_id", id).Msg("Added goal")
	return goal, nil
}

// UpdateProgress applies a status change, a progress note, and key result
// updates to one goal, returning a description of each change made. The
// file is rewritten only when something changed.
func (s *Store) UpdateProgress(username, goalID string, update ProgressUpdate) ([]string, error) {
	goals, err := s.load(username)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, g := range goals {
		if g.ID == goalID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("goals: goal not found: %s", goalID)
	}

	goal := &goals[idx]
	now := s.now().UTC()
	var changes []string

	if update.Status != "" && update.Status != goal.Status {
		changes = append(changes, fmt.Sprintf("status updated: %s -> %s", goal.Status, update.Status))
		goal.Status = update.Status
	}

	if update.ProgressNote != "" {
		goal.ProgressNotes = append(goal.ProgressNotes, ProgressNote{
			Date: now.Format("2006-01-02"),
			Note: update.ProgressNote,
		})
		changes = append(changes, "progress note added")
	}

	for _, kr := range update.KeyResults {
		if kr.Index < 0 || kr.Index >= len(goal.KeyResults) {
			s.logger.Warn().Int("index", kr.Index).Str("goal_id", goalID).Msg("Key result index out of range")
			continue
		}
		if kr.Current != nil {
			goal.KeyResults[kr.Index].Current = *kr.Current
		}
		if kr.Status != nil {
			goal.KeyResults[kr.Index].Status = *kr.Status
		}
		changes = append(changes, fmt.Sprintf("key result #%d updated", kr.Index))
	}

	if len(changes) > 0 {
		goal.UpdatedAt = &now
		if err := s.save(username, goals); err != nil {
			return nil, err
		}
		s.logger.Info().Str("username", username).Str("goal_id", goalID).Strs("changes", changes).Msg("Updated goal")
	}

	return changes, nil
}

type goalsDocument struct {
	Version  string `json:"version"`
	Username string `json:"github_username"`
	Goals    []Goal `json:"goals"`
}

type rawDocument struct {
	Version string            `json:"version"`
	Goals   []json.RawMessage `json:"goals"`
}

// load tolerates damage: a corrupt file or record is logged and skipped
// rather than failing the whole read.
func (s *Store) load(username string) ([]Goal, error) {
	path, err := s.filePath(username)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("goals: read %s: %w", path, err)
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Corrupted goals file")
		return nil, nil
	}
	if doc.Version != "" && doc.Version != fileVersion {
		s.logger.Warn().Str("path", path).Str("version", doc.Version).Msg("Goals file version mismatch")
	}

	goals := make([]Goal, 0, len(doc.Goals))
	for i, raw := range doc.Goals {
		var goal Goal
		if err := json.Unmarshal(raw, &goal); err != nil {
			s.logger.Warn().Err(err).Int("index", i).Msg("Skipping malformed goal")
			continue
		}
		if goal.ID == "" || goal.Title == "" {
			s.logger.Warn().Int("index", i).Msg("Skipping goal with missing id or title")
			continue
		}
		if goal.Status == "" {
			goal.Status = "active"
		}
		if goal.Category == "" {
			goal.Category = "general"
		}
		goals = append(goals, goal)
	}
	return goals, nil
}

func (s *Store) save(username string, goals []Goal) error {
	path, err := s.filePath(username)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("goals: create directory: %w", err)
	}

	doc := goalsDocument{Version: fileVersion, Username: username, Goals: goals}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("goals: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("goals: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("goals: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("goals: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("goals: rename temp file: %w", err)
	}
	return nil
}

// generateID slugifies a title into a stable goal id.
func generateID(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("goals: title cannot be empty")
	}
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "", fmt.Errorf("goals: title %q produces an empty id", title)
	}
	if len(slug) > maxIDLength {
		slug = slug[:maxIDLength]
	}
	return slug, nil
}
