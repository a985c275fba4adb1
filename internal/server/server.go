// Package server wires the MCP server. It is the composition root: clients
// and stores are built from the validated config here and injected into the
// tools that need them. No business logic lives in this package.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/feedback"
	"github.com/workpulse/workpulse/internal/goals"
	"github.com/workpulse/workpulse/internal/journal"
	"github.com/workpulse/workpulse/internal/tools"
	"github.com/workpulse/workpulse/pkg/confluence"
	"github.com/workpulse/workpulse/pkg/github"
	"github.com/workpulse/workpulse/pkg/jira"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Clients bundles the provider clients the server talks to. Jira and
// Confluence are nil when their config sections are absent.
type Clients struct {
	GitHub     *github.Client
	Jira       *jira.Client
	Confluence *confluence.Client
}

// Close releases every client, newest first.
func (c *Clients) Close() {
	if c.Confluence != nil {
		c.Confluence.Close()
	}
	if c.Jira != nil {
		c.Jira.Close()
	}
	if c.GitHub != nil {
		c.GitHub.Close()
	}
}

// NewClients builds the provider clients from cfg. On error every client
// built so far is closed.
func NewClients(cfg *config.Config) (*Clients, error) {
	gh, err := github.NewClient(github.Config{
		Token:    cfg.GitHub.Token,
		Org:      cfg.GitHub.Org,
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	clients := &Clients{GitHub: gh}

	if cfg.Jira != nil {
		jc, err := jira.NewClient(jira.Config{
			BaseURL:         cfg.Jira.BaseURL,
			Email:           cfg.Jira.Email,
			APIToken:        cfg.Jira.APIToken,
			ProjectKeys:     cfg.Jira.ProjectKeys,
			StoryPointField: cfg.Jira.StoryPointField,
			EpicLinkField:   cfg.Jira.EpicLinkField,
			CacheTTL:        cfg.CacheTTL,
		})
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("jira client: %w", err)
		}
		clients.Jira = jc
	}

	if cfg.Confluence != nil {
		cc, err := confluence.NewClient(confluence.Config{
			BaseURL:   cfg.Confluence.BaseURL,
			Email:     cfg.Confluence.Email,
			APIToken:  cfg.Confluence.APIToken,
			SpaceKeys: cfg.Confluence.SpaceKeys,
			CacheTTL:  cfg.CacheTTL,
		})
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("confluence client: %w", err)
		}
		clients.Confluence = cc
	}

	return clients, nil
}

// New builds the MCP server with every tool the config enables. The
// returned cleanup closes the provider clients and must be called on
// shutdown; it is always non-nil.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	clients, err := NewClients(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	s := server.NewMCPServer(
		"workpulse",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(cfg)),
	)

	register(s, cfg, clients)
	return s, clients.Close, nil
}

// register adds every tool the config enables. GitHub, team, goal, journal,
// and feedback tools are always on; Jira and Confluence tools appear only
// when their sections are configured.
func register(s *server.MCPServer, cfg *config.Config, clients *Clients) {
	contributions := tools.NewContributionsTool(cfg, clients.GitHub)
	s.AddTool(contributions.Definition(), contributions.Handle)

	pulse := tools.NewPulseTool(cfg, clients.GitHub)
	s.AddTool(pulse.Definition(), pulse.Handle)

	prDetails := tools.NewPRDetailsTool(clients.GitHub)
	s.AddTool(prDetails.Definition(), prDetails.Handle)

	teamMembers := tools.NewTeamMembersTool(cfg)
	s.AddTool(teamMembers.Definition(), teamMembers.Handle)

	if clients.Jira != nil {
		roadmap := tools.NewRoadmapTool(clients.Jira)
		s.AddTool(roadmap.Definition(), roadmap.Handle)

		bandwidth := tools.NewBandwidthTool(cfg, clients.Jira)
		s.AddTool(bandwidth.Definition(), bandwidth.Handle)

		searchIssues := tools.NewSearchIssuesTool(clients.Jira)
		s.AddTool(searchIssues.Definition(), searchIssues.Handle)

		updateIssue := tools.NewUpdateIssueTool(clients.Jira)
		s.AddTool(updateIssue.Definition(), updateIssue.Handle)
	}

	if clients.Confluence != nil {
		confluenceContributions := tools.NewConfluenceContributionsTool(cfg, clients.Confluence)
		s.AddTool(confluenceContributions.Definition(), confluenceContributions.Handle)
	}

	goalStore := goals.NewStore(cfg.DataDir)

	getGoals := tools.NewGoalsTool(cfg, goalStore)
	s.AddTool(getGoals.Definition(), getGoals.Handle)

	addGoal := tools.NewAddGoalTool(cfg, goalStore)
	s.AddTool(addGoal.Definition(), addGoal.Handle)

	updateGoal := tools.NewUpdateGoalTool(cfg, goalStore)
	s.AddTool(updateGoal.Definition(), updateGoal.Handle)

	goalProgress := tools.NewGoalProgressTool(cfg, goalStore)
	s.AddTool(goalProgress.Definition(), goalProgress.Handle)

	journalStore := journal.NewStore(cfg.DataDir)

	addJournal := tools.NewAddJournalTool(cfg, journalStore)
	s.AddTool(addJournal.Definition(), addJournal.Handle)

	journalEntries := tools.NewJournalEntriesTool(cfg, journalStore)
	s.AddTool(journalEntries.Definition(), journalEntries.Handle)

	journalSearch := tools.NewJournalSearchTool(cfg, journalStore)
	s.AddTool(journalSearch.Definition(), journalSearch.Handle)

	feedbackReader := feedback.NewReader(cfg.DataDir)

	peerFeedback := tools.NewPeerFeedbackTool(cfg, feedbackReader)
	s.AddTool(peerFeedback.Definition(), peerFeedback.Handle)
}

// serverInstructions tells the model what the server covers and how to
// scope queries.
func serverInstructions(cfg *config.Config) string {
	base := `You have access to WorkPulse, an MCP server that aggregates an
engineering team's work signal.

Data sources:
- GitHub: pull requests, reviews, review turnaround (always available)
- Goals, journal, and peer feedback: local files (always available)`

	if cfg.Jira != nil {
		base += "\n- Jira: roadmap progress, team bandwidth, issue search and updates"
	}
	if cfg.Confluence != nil {
		base += "\n- Confluence: pages, blog posts, and comments written"
	}

	base += `

Usage notes:
- Most tools accept github_username; omitting it falls back to the
  configured self, so "my PRs" needs no username argument.
- Time windows default to the last 14 days (journal: 30). Pass days or
  start_date/end_date (YYYY-MM-DD) to change the window.
- get_team_members lists everyone the server knows about; use it first
  when the user names a colleague you have not seen in this session.
- Tool responses are JSON. Summarize them; do not echo raw payloads.`

	return base
}
