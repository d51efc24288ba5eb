package style

import (
	"strings"
	"testing"
)

func TestRenderLinkStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   LinkStatus
		contains []string
	}{
		{
			name: "active link",
			status: LinkStatus{
				VirtualPath: "Data/textures/armor.dds",
				RealPath:    "/games/skyrim/Data/textures/armor.dds",
				Status:      StatusActive,
			},
			contains: []string{"active", "Data/textures/armor.dds", "materialized at"},
		},
		{
			name: "conflicted link",
			status: LinkStatus{
				VirtualPath: "Data/textures/armor.dds",
				Status:      StatusConflict,
			},
			contains: []string{"conflict", "shadowed by a higher-priority mod"},
		},
		{
			name: "staged link",
			status: LinkStatus{
				VirtualPath: "Data/meshes/sword.nif",
				Status:      StatusStaged,
			},
			contains: []string{"staged", "not materialized"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderLinkStatus(tt.status)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RenderLinkStatus() = %q, want it to contain %q", result, want)
				}
			}
		})
	}
}

func TestAggregateModStatus(t *testing.T) {
	tests := []struct {
		name  string
		links []LinkStatus
		want  Status
	}{
		{"no links", nil, StatusStaged},
		{"all staged", []LinkStatus{{Status: StatusStaged}, {Status: StatusStaged}}, StatusStaged},
		{"one active", []LinkStatus{{Status: StatusStaged}, {Status: StatusActive}}, StatusActive},
		{"conflict beats active", []LinkStatus{{Status: StatusActive}, {Status: StatusConflict}}, StatusConflict},
		{"error beats everything", []LinkStatus{{Status: StatusActive}, {Status: StatusError}, {Status: StatusConflict}}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateModStatus(tt.links); got != tt.want {
				t.Errorf("AggregateModStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderModStatus(t *testing.T) {
	ms := ModStatus{
		Key:         "2026-08-06-0001",
		DisplayName: "Nice Armor",
		Version:     "1.2.0",
		Status:      StatusActive,
		Links: []LinkStatus{
			{VirtualPath: "Data/textures/armor.dds", RealPath: "/games/skyrim/Data/textures/armor.dds", Status: StatusActive},
		},
	}

	result := RenderModStatus(ms)
	for _, want := range []string{"Nice Armor", "2026-08-06-0001", "v1.2.0", "Data/textures/armor.dds"} {
		if !strings.Contains(result, want) {
			t.Errorf("RenderModStatus() = %q, want it to contain %q", result, want)
		}
	}
}
