// Package colors styles the terminal output of the forked command.
//
// Colors are used only when stdout is a terminal. NO_COLOR disables them
// and FORCE_COLOR enables them regardless.
package colors

import (
	"os"
	"strings"
)

// ANSI color codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[91m"
	green  = "\033[92m"
	yellow = "\033[93m"
	cyan   = "\033[96m"
	gray   = "\033[90m"
)

var colorEnabled = shouldUseColor()

func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	if term == "dumb" || term == "" {
		return false
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// SetColorEnabled allows manual control of color output
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// IsColorEnabled returns whether colors are currently enabled
func IsColorEnabled() bool {
	return colorEnabled
}

func colorize(text, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + reset
}

// Fork styles a fork name.
func Fork(name string) string { return colorize(name, bold+cyan) }

// Version styles a version string.
func Version(text string) string { return colorize(text, gray) }

// Outcome styles a merge outcome by its name: fast-forwards green,
// resolved conflicts yellow, and no-ops gray.
func Outcome(name string) string {
	switch name {
	case "fast-forward":
		return colorize(name, green)
	case "resolve-conflict":
		return colorize(name, yellow)
	}
	return colorize(name, gray)
}

// Added and Removed mark set members in listings.
func Added(text string) string   { return colorize(text, green) }
func Removed(text string) string { return colorize(text, red) }

func Gray(text string) string          { return colorize(text, gray) }
func SectionHeader(text string) string { return colorize(text, bold) }
func ErrorText(text string) string     { return colorize(text, red) }
func SuccessText(text string) string   { return colorize(text, green) }
func WarningText(text string) string   { return colorize(text, yellow) }
