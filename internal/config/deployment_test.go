package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qraat/qraat/internal/geo"
)

const testDeployment = `
id: 7
calibration_id: 3
utm_zone_number: 10
utm_zone_letter: S
sites:
  - {id: 1, name: site1, easting: 0, northing: 0}
  - {id: 2, name: site2, easting: 1000, northing: 0}
  - {id: 3, name: site3, easting: 500, northing: 1000, utm_zone_number: 10, utm_zone_letter: S}
target:
  name: fox
  max_speed_family: exp
  speed_burst: 5
  speed_sustained: 1
  speed_limit: 0.5
`

func TestParseDeployment(t *testing.T) {
	t.Parallel()

	d, err := ParseDeployment([]byte(testDeployment))
	require.NoError(t, err)

	assert.Equal(t, 7, d.ID)
	assert.Len(t, d.Sites, 3)
	assert.Equal(t, "exp", d.Target.MaxSpeedFamily)

	assert.Equal(t, geo.Zone{Number: 10, Letter: "S"}, d.SiteZone(d.Sites[0]))
	assert.Equal(t, d.Zone(), d.SiteZone(d.Sites[2]))

	sites := d.SitePositions()
	assert.Equal(t, complex(1000, 500), sites[3])
	assert.InDelta(t, 1000.0/3, real(d.Centroid()), 1e-9)
	assert.InDelta(t, 500.0, imag(d.Centroid()), 1e-9)
}

func TestParseDeployment_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
	}{
		{"no sites", "id: 1\ncalibration_id: 1\nutm_zone_number: 10\nutm_zone_letter: S\nsites: []\ntarget: {name: a, max_speed_family: const, speed_limit: 1}\n"},
		{"bad family", "id: 1\ncalibration_id: 1\nutm_zone_number: 10\nutm_zone_letter: S\nsites: [{id: 1, name: a}]\ntarget: {name: a, max_speed_family: walk, speed_limit: 1}\n"},
		{"bad zone", "id: 1\ncalibration_id: 1\nutm_zone_number: 61\nutm_zone_letter: S\nsites: [{id: 1, name: a}]\ntarget: {name: a, max_speed_family: const, speed_limit: 1}\n"},
		{"duplicate site", "id: 1\ncalibration_id: 1\nutm_zone_number: 10\nutm_zone_letter: S\nsites: [{id: 1, name: a}, {id: 1, name: b}]\ntarget: {name: a, max_speed_family: const, speed_limit: 1}\n"},
		{"not yaml", "id: [1"},
		{"site zone number", "id: 1\ncalibration_id: 1\nutm_zone_number: 10\nutm_zone_letter: S\nsites: [{id: 1, name: a}, {id: 2, name: b, utm_zone_number: 11, utm_zone_letter: S}]\ntarget: {name: a, max_speed_family: const, speed_limit: 1}\n"},
		{"site zone letter", "id: 1\ncalibration_id: 1\nutm_zone_number: 10\nutm_zone_letter: S\nsites: [{id: 1, name: a, utm_zone_number: 10, utm_zone_letter: T}]\ntarget: {name: a, max_speed_family: const, speed_limit: 1}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDeployment([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadDeployment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yml")
	require.NoError(t, os.WriteFile(path, []byte(testDeployment), 0644))

	d, err := LoadDeployment(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.CalibrationID)

	_, err = LoadDeployment(filepath.Join(dir, "deployment.json"))
	assert.Error(t, err)
}

func TestDeploymentCheckZones(t *testing.T) {
	t.Parallel()

	d, err := ParseDeployment([]byte(testDeployment))
	require.NoError(t, err)
	require.NoError(t, d.CheckZones())

	d.Sites[1].ZoneNumber, d.Sites[1].ZoneLetter = 11, "S"
	err = d.CheckZones()
	assert.ErrorIs(t, err, geo.ErrZoneMismatch)
	assert.ErrorIs(t, d.Validate(), geo.ErrZoneMismatch)
}
