package main

import (
	"os"

	"golang.org/x/term"
)

const defaultWidth = 100

// terminalWidth is the width of stdout, or defaultWidth when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, 120)
}

// stdoutIsTerminal reports whether replies go to an interactive terminal.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}
