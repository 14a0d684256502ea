package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	weft "github.com/hyperpolymath/weft"
)

// Terminal styles. Lipgloss degrades them to plain text when stdout is not
// a terminal; disableStyles blanks them when --no-color is given.
var (
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleResult = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func disableStyles() {
	plain := lipgloss.NewStyle()
	styleError, styleOK, styleDim, styleResult = plain, plain, plain, plain
}

// reportDiagnostics prints err to stderr with caret snippets resolved
// against src. Header lines are highlighted; snippet lines stay plain so
// the caret column is easy to read.
func reportDiagnostics(name, src string, err error) {
	msg := weft.WrapErrorWithSource(err, name, src).Error()
	for _, line := range strings.Split(msg, "\n") {
		if strings.HasPrefix(line, "PARSE ERROR") || strings.HasPrefix(line, "RUNTIME ERROR") {
			fmt.Fprintln(os.Stderr, styleError.Render(line))
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}
}
