package linkprimitive_test

import (
	"testing"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/stretchr/testify/assert"
)

// The synthfs-driven strategies (symbolic, copy, delete) address the
// real OS filesystem only when the Primitive wraps fsx.OS; other
// backends go through fsx.FS directly. These tests exercise only the
// hard-link same-volume precondition against fsx.Memory; CreateLink's
// fallback is exercised indirectly by pkg/vma's tests, which also run
// against fsx.Memory.
func TestSameVolumeGatesHardLink(t *testing.T) {
	m := fsx.NewMemory()
	m.SetVolume("/staging", 1)
	m.SetVolume("/game", 2)

	same, err := m.SameVolume("/staging/plugin.esp", "/game/plugin.esp")
	assert.NoError(t, err)
	assert.False(t, same, "different volumes must not be reported as same")

	m.SetVolume("/staging", 1)
	same, err = m.SameVolume("/staging/a.esp", "/staging/b.esp")
	assert.NoError(t, err)
	assert.True(t, same)
}

func TestLinkFailsAcrossVolumes(t *testing.T) {
	m := fsx.NewMemory()
	require := assert.New(t)
	require.NoError(m.WriteFile("/staging/plugin.esp", []byte("data"), 0644))
	m.SetVolume("/staging", 1)
	m.SetVolume("/game", 2)

	err := m.Link("/staging/plugin.esp", "/game/plugin.esp")
	require.Error(err)
}
