package style

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// Status is the coarse state a rendered line carries: a link's
// materialization outcome, or a mod's aggregate state.
type Status string

const (
	StatusActive   Status = "active"   // mod is active, link materialized
	StatusStaged   Status = "staged"   // mod is staged, not materialized
	StatusError    Status = "error"    // last operation on this mod/link failed
	StatusConflict Status = "conflict" // link lost the priority race to another mod
)

// StatusStyle returns the appropriate pterm style for a status.
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusActive:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case StatusStaged:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	case StatusError:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	case StatusConflict:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// LinkStatus is one line of a mod's file-link status.
type LinkStatus struct {
	VirtualPath string
	RealPath    string // empty when not the current winner
	Status      Status
}

// ModStatus is the aggregate status of one tracked mod.
type ModStatus struct {
	Key         string
	DisplayName string
	Version     string
	Status      Status
	Links       []LinkStatus
}

// RenderLinkStatus renders a single link status line. The status badge
// comes from the pterm-based StatusStyle (matching the teacher's table
// badges elsewhere), while the path and detail text are run through the
// markup layer so tagged domain text and plain templates render the same
// way everywhere in the CLI.
func RenderLinkStatus(ls LinkStatus) string {
	badge := StatusStyle(ls.Status).Sprint(fmt.Sprintf("%-8s", ls.Status))
	path := fmt.Sprintf("%-40s", ls.VirtualPath)

	var detail string
	switch ls.Status {
	case StatusActive:
		detail = RenderTemplate("materialized at [path]{{realPath}}[/path]", map[string]string{"realPath": ls.RealPath})
	case StatusConflict:
		detail = Render("[conflict]shadowed by a higher-priority mod[/conflict]")
	case StatusError:
		detail = Render("[error]failed to materialize[/error]")
	default:
		detail = "not materialized"
	}

	return fmt.Sprintf("    %s : %s : %s", badge, path, detail)
}

// RenderModStatus renders a mod's header line followed by each of its
// link status lines. The header text is built as markup and rendered
// through the package's default MarkupParser, so a mod's status tag
// maps to the same style as the [tag] markup used elsewhere.
func RenderModStatus(ms ModStatus) string {
	var result strings.Builder

	tag := string(ms.Status)
	header := RenderTemplate(fmt.Sprintf("[%s]{{name}} ({{key}})[/%s]", tag, tag),
		map[string]string{"name": ms.DisplayName, "key": ms.Key})
	if ms.Version != "" {
		header += Render(fmt.Sprintf("[muted] v%s[/muted]", ms.Version))
	}
	result.WriteString(header + "\n")

	for _, ls := range ms.Links {
		result.WriteString(RenderLinkStatus(ls) + "\n")
	}

	return strings.TrimRight(result.String(), "\n")
}

// AggregateModStatus determines a mod's overall status from its links':
// any error dominates, any conflict is next, otherwise at least one
// materialized link means active and none means staged.
func AggregateModStatus(links []LinkStatus) Status {
	hasError, hasConflict, hasActive := false, false, false
	for _, l := range links {
		switch l.Status {
		case StatusError:
			hasError = true
		case StatusConflict:
			hasConflict = true
		case StatusActive:
			hasActive = true
		}
	}

	switch {
	case hasError:
		return StatusError
	case hasConflict:
		return StatusConflict
	case hasActive:
		return StatusActive
	default:
		return StatusStaged
	}
}
