// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the plain-terminal front end: a line-based REPL
// for environments where the full-screen TUI is unsuitable (pipes,
// CI logs, dumb terminals).
package cli

import (
	"os"

	"golang.org/x/term"
)

// StdinIsTerminal reports whether stdin is attached to a terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Interactive reports whether both ends are terminals. The TUI needs
// this; otherwise the REPL is the right front end.
func Interactive() bool {
	return StdinIsTerminal() && StdoutIsTerminal()
}
