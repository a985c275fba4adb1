// WorkPulse: an MCP server that aggregates an engineer's work signal from
// GitHub, Jira, and Confluence alongside local goal, journal, and peer
// feedback files.
//
// Usage:
//
//	workpulse serve [config]      # start the MCP server (stdio transport)
//	workpulse validate [config]   # check config and provider credentials
//
// The config path defaults to $WORKPULSE_CONFIG or ~/.workpulse/config.json.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/workpulse/workpulse/internal/config"
	"github.com/workpulse/workpulse/internal/server"
	"github.com/workpulse/workpulse/pkg/logging"
)

const validateTimeout = 30 * time.Second

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := runServe(configArg()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(configArg(), os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("workpulse v%s\n", server.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

// configArg returns the optional config path following the subcommand.
// Empty means the default resolution in config.Load.
func configArg() string {
	if len(os.Args) > 2 {
		return os.Args[2]
	}
	return ""
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Stdout carries the MCP transport; human-readable output goes to
	// stderr.
	fmt.Fprintf(os.Stderr, "workpulse v%s serving on stdio\n", server.Version)
	return mcpserver.ServeStdio(s)
}

// runValidate loads the config, builds the clients, and pings every
// configured provider, printing one status line per check.
func runValidate(configPath string, w io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(w, "Config:     FAIL (%v)\n", err)
		return errors.New("validation failed")
	}

	members := 0
	for _, team := range cfg.Teams {
		members += len(team.Members)
	}
	fmt.Fprintf(w, "Config:     OK (%d teams, %d members, self=%s)\n",
		len(cfg.Teams), members, cfg.Self)

	clients, err := server.NewClients(cfg)
	if err != nil {
		fmt.Fprintf(w, "Clients:    FAIL (%v)\n", err)
		return errors.New("validation failed")
	}
	defer clients.Close()

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	if !checkProviders(ctx, clients, w) {
		return errors.New("validation failed")
	}
	fmt.Fprintln(w, "All checks passed")
	return nil
}

// checkProviders pings every configured provider and reports per-provider
// status. It returns false when any check failed.
func checkProviders(ctx context.Context, clients *server.Clients, w io.Writer) bool {
	ok := true

	if login, err := clients.GitHub.CurrentUser(ctx); err != nil {
		fmt.Fprintf(w, "GitHub:     FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintf(w, "GitHub:     OK (authenticated as %s)\n", login)
	}

	if clients.Jira == nil {
		fmt.Fprintln(w, "Jira:       skipped (not configured)")
	} else if name, err := clients.Jira.Myself(ctx); err != nil {
		fmt.Fprintf(w, "Jira:       FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintf(w, "Jira:       OK (authenticated as %s)\n", name)
	}

	if clients.Confluence == nil {
		fmt.Fprintln(w, "Confluence: skipped (not configured)")
	} else if name, err := clients.Confluence.CurrentUser(ctx); err != nil {
		fmt.Fprintf(w, "Confluence: FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintf(w, "Confluence: OK (authenticated as %s)\n", name)
	}

	return ok
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `workpulse v%s - work signal MCP server

Usage:
  workpulse serve [config]      Start the MCP server (stdio transport)
  workpulse validate [config]   Check config and provider credentials
  workpulse version             Print the version

The config path defaults to $%s or ~/.workpulse/config.json.

MCP client configuration:

  {
    "mcpServers": {
      "workpulse": {
        "command": "workpulse",
        "args": ["serve"]
      }
    }
  }
`, server.Version, config.EnvConfigPath)
}
