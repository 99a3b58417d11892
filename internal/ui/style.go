package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).PaddingLeft(1)
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Heading renders a section heading such as the name of a child pass.
func Heading(text string) string {
	if !IsColorEnabled() {
		return "== " + text + " =="
	}
	return headingStyle.Render("▸ " + text)
}

// Rule renders a banner rule line.
func Rule(line string) string {
	if !IsColorEnabled() {
		return line
	}
	return ruleStyle.Render(line)
}
