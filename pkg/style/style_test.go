package style

import (
	"errors"
	"strings"
	"testing"
)

func TestTextStyleHelpers(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		style    func(string) string
		contains string
	}{
		{name: "bold text", text: "Hello World", style: Bold, contains: "Hello World"},
		{name: "italic text", text: "Hello World", style: Italic, contains: "Hello World"},
		{name: "underline text", text: "Hello World", style: Underline, contains: "Hello World"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.style(tt.text)
			if !strings.Contains(result, tt.contains) {
				t.Errorf("%s: got %q, want it to contain %q", tt.name, result, tt.contains)
			}
		})
	}
}

func TestMarkupParserRendersRegisteredTags(t *testing.T) {
	result := Render("[active]Nice Armor[/active] is now live")
	if !strings.Contains(result, "Nice Armor") {
		t.Errorf("Render() = %q, want it to still contain the tag content", result)
	}
	if strings.Contains(result, "[active]") {
		t.Errorf("Render() = %q, want the markup tags stripped", result)
	}
}

func TestTerminalRendererRenderModList(t *testing.T) {
	r := NewTerminalRenderer()

	empty := r.RenderModList(nil)
	if !strings.Contains(empty, "No mods tracked") {
		t.Errorf("RenderModList(nil) = %q, want the empty-state message", empty)
	}

	mods := []ModStatus{{Key: "K1", DisplayName: "Nice Armor", Status: StatusActive}}
	result := r.RenderModList(mods)
	if !strings.Contains(result, "Nice Armor") {
		t.Errorf("RenderModList() = %q, want it to contain the mod name", result)
	}
}

func TestPlainRendererRenderModList(t *testing.T) {
	r := NewPlainRenderer()
	mods := []ModStatus{{Key: "K1", DisplayName: "Nice Armor", Status: StatusStaged, Links: []LinkStatus{{}, {}}}}
	result := r.RenderModList(mods)
	if !strings.Contains(result, "Nice Armor") || !strings.Contains(result, "2 link(s)") {
		t.Errorf("RenderModList() = %q, want mod name and link count", result)
	}
}

func TestPlainRendererRenderError(t *testing.T) {
	r := NewPlainRenderer()
	err := errors.New("boom")
	result := r.RenderError(err)
	if !strings.Contains(result, "boom") {
		t.Errorf("RenderError() = %q, want it to contain the underlying message", result)
	}
	if r.RenderError(nil) != "" {
		t.Errorf("RenderError(nil) should be empty")
	}
}
