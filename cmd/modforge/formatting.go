package main

import (
	"text/template"

	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/style"
)

var (
	successStyle = style.SuccessStyle
	errorStyle   = style.ErrorStyle
	mutedStyle   = style.MutedStyle

	// renderer is shared by every command that reports mod status or
	// install progress, so a terminal-width override applies uniformly.
	renderer = style.NewTerminalRenderer()
)

// initTemplateFormatting registers style-backed helpers cobra's usage
// templates can call, mirroring the teacher's own bold/upper helpers.
func initTemplateFormatting() {
	cobra.AddTemplateFuncs(template.FuncMap{
		"bold":  style.Bold,
		"muted": func(s string) string { return mutedStyle.Render(s) },
	})
}
