// PatentForge TUI - a terminal chat client for AI-assisted patent drafting.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/patentforge-tui/internal/api"
	"github.com/jeranaias/patentforge-tui/internal/auth"
	"github.com/jeranaias/patentforge-tui/internal/cli"
	"github.com/jeranaias/patentforge-tui/internal/config"
	"github.com/jeranaias/patentforge-tui/internal/document"
	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
	"github.com/jeranaias/patentforge-tui/internal/storage"
	"github.com/jeranaias/patentforge-tui/internal/ui/chat"
	"github.com/jeranaias/patentforge-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to the config file (default ~/.patentforge/config.toml)")
		draftPath   = flag.String("draft", "", "path to the patent draft file for /insert")
		plain       = flag.Bool("plain", false, "use the line-based REPL instead of the full-screen TUI")
		debug       = flag.Bool("debug", false, "verbose logging")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("patentforge %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	if *draftPath != "" {
		cfg.Document.DraftPath = *draftPath
	}
	if *plain {
		cfg.UI.Plain = true
	}

	if err := run(cfg, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(cfg *config.Config, configPath string) error {
	tokens := auth.NewTokenStore()
	if tok := os.Getenv("PATENTFORGE_TOKEN"); tok != "" {
		tokens.SetCredentials(tok, auth.Profile{})
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:       cfg.Server.BaseURL,
		Timeout:       cfg.Timeout(),
		RunsPerSecond: cfg.Server.RunsPerSecond,
	}, tokens)

	runner := orchestrator.NewSessionRunner(client, cfg.IdleTimeout(), cfg.Debug)
	orch := orchestrator.New(runner, orchestrator.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
		UndoWindow: cfg.UndoWindow(),
		Debug:      cfg.Debug,
	})

	if cfg.Document.DraftPath != "" {
		orch.SetDocumentHost(document.NewFileHost(cfg.Document.DraftPath))
	}

	if cfg.Archive.Enabled {
		path, err := cfg.ArchivePath()
		if err != nil {
			log.Printf("archive disabled: %v", err)
		} else if store, err := storage.Open(path, cfg.Archive.MaxConversations); err != nil {
			log.Printf("archive disabled: %v", err)
		} else {
			defer store.Close()
			orch.SetArchiver(store)
		}
	}

	// Live-apply draft path changes from the config file; everything
	// else takes effect on the next launch.
	watchPath := configPath
	if watchPath == "" {
		if p, err := config.ConfigPath(); err == nil {
			watchPath = p
		}
	}
	if watchPath != "" {
		if w, err := config.NewWatcher(watchPath, func(next *config.Config) {
			if next.Document.DraftPath != cfg.Document.DraftPath {
				cfg.Document.DraftPath = next.Document.DraftPath
				if next.Document.DraftPath == "" {
					orch.SetDocumentHost(document.NopHost{})
				} else {
					orch.SetDocumentHost(document.NewFileHost(next.Document.DraftPath))
				}
			}
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	if cfg.UI.Plain || !cli.Interactive() {
		repl := cli.NewREPL(orch, cfg.UI.ShowThoughts)
		defer repl.Close()
		return repl.Run()
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	model := chat.New(orch, theme, cfg.UI.ShowThoughts)
	program := tea.NewProgram(model, tea.WithAltScreen())

	orch.SetOnChange(func() {
		program.Send(chat.StateChangedMsg{})
	})

	_, err := program.Run()
	return err
}
