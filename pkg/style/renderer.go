package style

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/modforge/modforge/pkg/merr"
)

// Renderer defines the interface for rendering modforge's mod/link
// status and error output.
type Renderer interface {
	RenderModList(mods []ModStatus) string
	RenderError(err error) string
	RenderProgress(current, total int, message string) string
}

// TerminalRenderer implements Renderer with rich terminal output.
type TerminalRenderer struct {
	width int
}

// NewTerminalRenderer creates a new terminal renderer.
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{width: 80}
}

// SetWidth updates the terminal width for rendering.
func (r *TerminalRenderer) SetWidth(width int) {
	r.width = width
}

// RenderModList renders every tracked mod's status and links.
func (r *TerminalRenderer) RenderModList(mods []ModStatus) string {
	if len(mods) == 0 {
		return MutedStyle.Render("No mods tracked")
	}

	var result strings.Builder
	result.WriteString(TitleStyle.Render("Tracked Mods") + "\n\n")

	for _, mod := range mods {
		result.WriteString(RenderModStatus(mod) + "\n\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderError renders an error message, surfacing a merr.Error's Code
// when the error carries one.
func (r *TerminalRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}

	var coded *merr.Error
	if errors.As(err, &coded) {
		return fmt.Sprintf("%s Error [%s]: %s",
			pterm.Error.Prefix.Text,
			pterm.Error.MessageStyle.Sprint(string(coded.Code)),
			err.Error())
	}

	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
}

// RenderProgress renders a progress bar, used while a transaction
// materializes several file links in sequence.
func (r *TerminalRenderer) RenderProgress(current, total int, message string) string {
	percentage := float64(current) / float64(total)
	barWidth := 20
	filled := int(percentage * float64(barWidth))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("%s [%s] %d/%d %s",
		ProgressIndicator,
		pterm.Info.MessageStyle.Sprint(bar),
		current,
		total,
		message)
}

// PlainRenderer implements Renderer with plain text output (no styling).
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderModList renders a plain list of mods and their link counts.
func (r *PlainRenderer) RenderModList(mods []ModStatus) string {
	if len(mods) == 0 {
		return "No mods tracked"
	}

	var result strings.Builder
	result.WriteString("Tracked Mods:\n")

	for _, mod := range mods {
		result.WriteString(fmt.Sprintf("  - %s (%s): %s, %d link(s)\n",
			mod.DisplayName, mod.Key, mod.Status, len(mod.Links)))
	}

	return strings.TrimRight(result.String(), "\n")
}

// RenderError renders a plain error message.
func (r *PlainRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

// RenderProgress renders plain progress.
func (r *PlainRenderer) RenderProgress(current, total int, message string) string {
	return fmt.Sprintf("Progress: %d/%d - %s", current, total, message)
}
