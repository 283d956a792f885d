package shipclass

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	ulysses, err := c.Get("gtf ulysses")
	require.NoError(t, err)
	assert.Equal(t, "GTF Ulysses", ulysses.Name)
	assert.Equal(t, 200.0, ulysses.MaxHull)
	assert.Equal(t, 300.0, ulysses.MaxShield)
	assert.Equal(t, 130.0, ulysses.MaxAfterburnerVelocity)
	assert.Equal(t, "Terran", ulysses.Faction)

	assert.Contains(t, c.Names(), "SF Dragon")
}

func TestGet_Unknown(t *testing.T) {
	_, err := Default().Get("Lucifer")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestLoad_OverlayReplacesAndAdds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
GTF Ulysses:
  max_hull: 250
  max_shield: 300
  max_velocity: 80
  max_afterburner_velocity: 140
Test Drone:
  max_hull: 10
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	ulysses, err := c.Get("GTF Ulysses")
	require.NoError(t, err)
	assert.Equal(t, 250.0, ulysses.MaxHull)
	assert.Equal(t, 0.0, ulysses.MaxWeaponEnergy)

	drone, err := c.Get("test drone")
	require.NoError(t, err)
	assert.Equal(t, 10.0, drone.MaxHull)

	_, err = c.Get("GTB Medusa")
	assert.NoError(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Hulk:\n  max_hull: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
