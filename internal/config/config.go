// Package config loads and validates the WorkPulse configuration file.
//
// The file is JSON, resolved from the WORKPULSE_CONFIG environment variable
// or ~/.workpulse/config.json. Validation happens after decoding so every
// failure can name the offending field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "WORKPULSE_CONFIG"

	defaultCacheTTLSeconds = 300
	defaultEpicLinkField   = "customfield_10014"
)

var (
	teamIDPattern     = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)
)

// Member is one tracked engineer. GitHub usernames key the teams map;
// the Atlassian account ID drives Jira and Confluence lookups.
type Member struct {
	GitHubUsername     string
	AtlassianAccountID string
	Name               string
}

// Team groups members under a stable id.
type Team struct {
	ID      string
	Name    string
	Members map[string]Member
}

// GitHubConfig carries GitHub API credentials and scope.
type GitHubConfig struct {
	Token string
	Org   string
	Repos []string
}

// JiraConfig carries Jira Cloud credentials and field mappings.
type JiraConfig struct {
	BaseURL         string
	Email           string
	APIToken        string
	ProjectKeys     []string
	StoryPointField string
	EpicLinkField   string
}

// ConfluenceConfig carries Confluence Cloud credentials and space scope.
type ConfluenceConfig struct {
	BaseURL   string
	Email     string
	APIToken  string
	SpaceKeys []string
}

// Config is the validated server configuration. Jira and Confluence are
// nil when their sections are absent; the server skips those tools.
type Config struct {
	Self       string
	Teams      map[string]Team
	GitHub     GitHubConfig
	Jira       *JiraConfig
	Confluence *ConfluenceConfig
	DataDir    string
	CacheTTL   time.Duration
	LogLevel   string
	LogPretty  bool
}

type fileMember struct {
	AtlassianAccountID string `mapstructure:"atlassian_account_id"`
	Name               string `mapstructure:"name"`
}

type fileTeam struct {
	Name    string                `mapstructure:"name"`
	Members map[string]fileMember `mapstructure:"members"`
}

type fileConfig struct {
	Self            string                `mapstructure:"self"`
	Teams           map[string]fileTeam   `mapstructure:"teams"`
	TeamMembers     map[string]fileMember `mapstructure:"team_members"`
	GitHub          *fileGitHub           `mapstructure:"github"`
	Jira            *fileJira             `mapstructure:"jira"`
	Confluence      *fileConfluence       `mapstructure:"confluence"`
	DataDir         string                `mapstructure:"data_dir"`
	CacheTTLSeconds int                   `mapstructure:"cache_ttl_seconds"`
	LogLevel        string                `mapstructure:"log_level"`
	LogPretty       bool                  `mapstructure:"log_pretty"`
}

type fileGitHub struct {
	Token string   `mapstructure:"token"`
	Org   string   `mapstructure:"org"`
	Repos []string `mapstructure:"repos"`
}

type fileJira struct {
	BaseURL         string   `mapstructure:"base_url"`
	Email           string   `mapstructure:"email"`
	APIToken        string   `mapstructure:"api_token"`
	ProjectKeys     []string `mapstructure:"project_keys"`
	StoryPointField string   `mapstructure:"story_point_field"`
	EpicLinkField   string   `mapstructure:"epic_link_field"`
}

type fileConfluence struct {
	BaseURL   string   `mapstructure:"base_url"`
	Email     string   `mapstructure:"email"`
	APIToken  string   `mapstructure:"api_token"`
	SpaceKeys []string `mapstructure:"space_keys"`
}

// DefaultPath resolves the config file location from WORKPULSE_CONFIG or
// the home directory fallback.
func DefaultPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".workpulse", "config.json"), nil
}

// Load reads and validates the config file at path. An empty path selects
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		resolved, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return parse(raw, v.IsSet("teams"), v.IsSet("team_members"))
}

func parse(raw fileConfig, hasTeams, hasTeamMembers bool) (*Config, error) {
	teams, err := parseTeams(raw, hasTeams, hasTeamMembers)
	if err != nil {
		return nil, err
	}

	if raw.Self == "" {
		return nil, fmt.Errorf("config: self is required")
	}
	if _, ok := findMember(teams, raw.Self); !ok {
		return nil, fmt.Errorf("config: self %q is not a configured team member", raw.Self)
	}

	if raw.GitHub == nil {
		return nil, fmt.Errorf("config: github section is required")
	}
	if raw.GitHub.Token == "" {
		return nil, fmt.Errorf("config: github.token is required")
	}
	if raw.GitHub.Org == "" {
		return nil, fmt.Errorf("config: github.org is required")
	}

	cfg := &Config{
		Self:  raw.Self,
		Teams: teams,
		GitHub: GitHubConfig{
			Token: raw.GitHub.Token,
			Org:   raw.GitHub.Org,
			Repos: raw.GitHub.Repos,
		},
		DataDir:   raw.DataDir,
		LogLevel:  raw.LogLevel,
		LogPretty: raw.LogPretty,
	}

	if raw.Jira != nil {
		jira, err := parseJira(*raw.Jira)
		if err != nil {
			return nil, err
		}
		cfg.Jira = jira
	}

	if raw.Confluence != nil {
		confluence, err := parseConfluence(*raw.Confluence)
		if err != nil {
			return nil, err
		}
		cfg.Confluence = confluence
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home directory for data_dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".workpulse")
	}

	ttlSeconds := raw.CacheTTLSeconds
	if ttlSeconds == 0 {
		ttlSeconds = defaultCacheTTLSeconds
	}
	cfg.CacheTTL = time.Duration(ttlSeconds) * time.Second

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func parseTeams(raw fileConfig, hasTeams, hasTeamMembers bool) (map[string]Team, error) {
	if hasTeams && hasTeamMembers {
		return nil, fmt.Errorf("config: teams and team_members are mutually exclusive")
	}
	if !hasTeams && !hasTeamMembers {
		return nil, fmt.Errorf("config: either teams or team_members is required")
	}

	if hasTeamMembers {
		members, err := parseMembers(raw.TeamMembers, "team_members")
		if err != nil {
			return nil, err
		}
		return map[string]Team{
			"default": {ID: "default", Name: "Default Team", Members: members},
		}, nil
	}

	if len(raw.Teams) == 0 {
		return nil, fmt.Errorf("config: teams cannot be empty")
	}

	teams := make(map[string]Team, len(raw.Teams))
	seen := map[string]string{}
	for id, team := range raw.Teams {
		if !teamIDPattern.MatchString(id) {
			return nil, fmt.Errorf("config: invalid team id %q: must be lowercase, start with a letter, and contain only letters, numbers, hyphens, and underscores", id)
		}
		if team.Name == "" {
			return nil, fmt.Errorf("config: teams.%s.name is required", id)
		}
		for username := range team.Members {
			if other, dup := seen[username]; dup {
				return nil, fmt.Errorf("config: username %q appears in both team %q and team %q", username, other, id)
			}
			seen[username] = id
		}
		members, err := parseMembers(team.Members, "teams."+id+".members")
		if err != nil {
			return nil, err
		}
		teams[id] = Team{ID: id, Name: team.Name, Members: members}
	}
	return teams, nil
}

func parseMembers(raw map[string]fileMember, section string) (map[string]Member, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("config: %s cannot be empty", section)
	}
	members := make(map[string]Member, len(raw))
	for username, m := range raw {
		if m.AtlassianAccountID == "" {
			return nil, fmt.Errorf("config: %s.%s.atlassian_account_id is required", section, username)
		}
		if m.Name == "" {
			return nil, fmt.Errorf("config: %s.%s.name is required", section, username)
		}
		members[username] = Member{
			GitHubUsername:     username,
			AtlassianAccountID: m.AtlassianAccountID,
			Name:               m.Name,
		}
	}
	return members, nil
}

func parseJira(raw fileJira) (*JiraConfig, error) {
	if raw.BaseURL == "" {
		return nil, fmt.Errorf("config: jira.base_url is required")
	}
	if raw.Email == "" {
		return nil, fmt.Errorf("config: jira.email is required")
	}
	if raw.APIToken == "" {
		return nil, fmt.Errorf("config: jira.api_token is required")
	}
	if len(raw.ProjectKeys) == 0 {
		return nil, fmt.Errorf("config: jira.project_keys cannot be empty")
	}
	for _, key := range raw.ProjectKeys {
		if !projectKeyPattern.MatchString(key) {
			return nil, fmt.Errorf("config: invalid jira project key %q: must be uppercase letters and numbers, starting with a letter", key)
		}
	}
	if raw.StoryPointField == "" {
		return nil, fmt.Errorf("config: jira.story_point_field is required")
	}
	epicLink := raw.EpicLinkField
	if epicLink == "" {
		epicLink = defaultEpicLinkField
	}
	return &JiraConfig{
		BaseURL:         strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		Email:           raw.Email,
		APIToken:        raw.APIToken,
		ProjectKeys:     raw.ProjectKeys,
		StoryPointField: raw.StoryPointField,
		EpicLinkField:   epicLink,
	}, nil
}

func parseConfluence(raw fileConfluence) (*ConfluenceConfig, error) {
	if raw.BaseURL == "" {
		return nil, fmt.Errorf("config: confluence.base_url is required")
	}
	if raw.Email == "" {
		return nil, fmt.Errorf("config: confluence.email is required")
	}
	if raw.APIToken == "" {
		return nil, fmt.Errorf("config: confluence.api_token is required")
	}
	if len(raw.SpaceKeys) == 0 {
		return nil, fmt.Errorf("config: confluence.space_keys cannot be empty")
	}
	return &ConfluenceConfig{
		BaseURL:   strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		Email:     raw.Email,
		APIToken:  raw.APIToken,
		SpaceKeys: raw.SpaceKeys,
	}, nil
}

// Member looks a member up by GitHub username across all teams.
func (c *Config) Member(username string) (Member, bool) {
	return findMember(c.Teams, username)
}

// TeamOf returns the team containing username.
func (c *Config) TeamOf(username string) (Team, bool) {
	for _, team := range c.Teams {
		if _, ok := team.Members[username]; ok {
			return team, true
		}
	}
	return Team{}, false
}

// AllUsernames lists every configured GitHub username, sorted.
func (c *Config) AllUsernames() []string {
	var names []string
	for _, team := range c.Teams {
		for username := range team.Members {
			names = append(names, username)
		}
	}
	sort.Strings(names)
	return names
}

func findMember(teams map[string]Team, username string) (Member, bool) {
	for _, team := range teams {
		if member, ok := team.Members[username]; ok {
			return member, true
		}
	}
	return Member{}, false
}
