// Package ui provides terminal styling helpers for CLI output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderAccent highlights informational markers.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass marks a successful outcome.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn marks a degraded but non-fatal condition.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderErr marks a failure.
func RenderErr(s string) string { return errStyle.Render(s) }

// RenderDim de-emphasizes secondary detail.
func RenderDim(s string) string { return dimStyle.Render(s) }

// RenderHeader styles a section heading.
func RenderHeader(s string) string { return headerStyle.Render(s) }
