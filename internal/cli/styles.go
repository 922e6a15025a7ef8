// Package cli holds the shared terminal styling of the sonicprint commands.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	PrimaryColor = lipgloss.Color("#00B3A4")
	AccentColor  = lipgloss.Color("#FF5F87")
	MutedColor   = lipgloss.Color("#888888")
	TextColor    = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)
)

func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("sonicprint"))
	PrintKV("Version:", version)
	fmt.Println()
}

func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintKV prints one aligned key/value line.
func PrintKV(key string, value any) {
	fmt.Printf("%s %s\n", KeyStyle.Width(14).Render(key), ValueStyle.Render(fmt.Sprint(value)))
}
