package printer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error prints a formatted error (title, explanation, suggestions) to stderr
// and returns a bare error carrying only the title. Cobra runs with
// SilenceErrors, so the returned error sets the exit code without printing
// the message twice.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with an extra block of key: value details
// printed between the explanation and the suggestions. Keys render in
// sorted order so the output is stable.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(os.Stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", k, context[k])
		}
	}

	printSuggestions(suggestions)

	return fmt.Errorf("%s", title)
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n")
	if len(suggestions) == 1 {
		fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		return
	}
	fmt.Fprintf(os.Stderr, "Either:\n")
	for i, suggestion := range suggestions {
		fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
	}
}
