package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qraat/qraat/internal/geo"
)

// SiteConfig is one receiver site in UTM coordinates. A site without a
// zone takes the deployment's.
type SiteConfig struct {
	ID         int     `yaml:"id" validate:"gt=0"`
	Name       string  `yaml:"name" validate:"required"`
	Easting    float64 `yaml:"easting"`
	Northing   float64 `yaml:"northing"`
	ZoneNumber int     `yaml:"utm_zone_number,omitempty" validate:"omitempty,gte=1,lte=60"`
	ZoneLetter string  `yaml:"utm_zone_letter,omitempty" validate:"omitempty,len=1"`
}

// TargetConfig describes how fast the tagged animal can move.
type TargetConfig struct {
	Name           string  `yaml:"name" validate:"required"`
	MaxSpeedFamily string  `yaml:"max_speed_family" validate:"oneof=const linear exp"`
	SpeedBurst     float64 `yaml:"speed_burst" validate:"gte=0"`
	SpeedSustained float64 `yaml:"speed_sustained" validate:"gte=0"`
	SpeedLimit     float64 `yaml:"speed_limit" validate:"gt=0"`
}

// Deployment ties a transmitter to a site array and calibration set.
type Deployment struct {
	ID            int          `yaml:"id" validate:"gt=0"`
	CalibrationID int          `yaml:"calibration_id" validate:"gt=0"`
	ZoneNumber    int          `yaml:"utm_zone_number" validate:"gte=1,lte=60"`
	ZoneLetter    string       `yaml:"utm_zone_letter" validate:"len=1"`
	Sites         []SiteConfig `yaml:"sites" validate:"min=1,dive"`
	Target        TargetConfig `yaml:"target"`
}

// LoadDeployment reads and validates a deployment description.
func LoadDeployment(path string) (*Deployment, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yml", ".yaml":
	default:
		return nil, fmt.Errorf("deployment file must have .yml or .yaml extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}
	return ParseDeployment(data)
}

// ParseDeployment decodes a YAML deployment document and validates it.
func ParseDeployment(data []byte) (*Deployment, error) {
	var d Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deployment YAML: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}
	return &d, nil
}

// Validate checks struct tags, site ID uniqueness and that every site
// lies in the deployment's zone.
func (d *Deployment) Validate() error {
	v := validator.New()
	if err := v.Struct(d); err != nil {
		return err
	}
	seen := make(map[int]bool, len(d.Sites))
	for _, s := range d.Sites {
		if seen[s.ID] {
			return fmt.Errorf("duplicate site id %d", s.ID)
		}
		seen[s.ID] = true
	}
	return d.CheckZones()
}

// Zone returns the deployment's UTM zone.
func (d *Deployment) Zone() geo.Zone {
	return geo.Zone{Number: d.ZoneNumber, Letter: d.ZoneLetter}
}

// SiteZone returns the zone of s, falling back to the deployment zone.
func (d *Deployment) SiteZone(s SiteConfig) geo.Zone {
	if s.ZoneNumber == 0 && s.ZoneLetter == "" {
		return d.Zone()
	}
	return geo.Zone{Number: s.ZoneNumber, Letter: s.ZoneLetter}
}

// CheckZones returns geo.ErrZoneMismatch when a site lies outside the
// deployment's zone.
func (d *Deployment) CheckZones() error {
	zones := []geo.Zone{d.Zone()}
	for _, s := range d.Sites {
		zones = append(zones, d.SiteZone(s))
	}
	_, err := geo.SameZone(zones...)
	return err
}

// SitePositions returns site locations keyed by ID as complex UTM
// coordinates (real = northing, imag = easting).
func (d *Deployment) SitePositions() map[int]complex128 {
	out := make(map[int]complex128, len(d.Sites))
	for _, s := range d.Sites {
		out[s.ID] = complex(s.Northing, s.Easting)
	}
	return out
}

// Centroid returns the mean site location, the usual initial guess for
// the grid search.
func (d *Deployment) Centroid() complex128 {
	var sum complex128
	for _, s := range d.Sites {
		sum += complex(s.Northing, s.Easting)
	}
	if len(d.Sites) == 0 {
		return 0
	}
	return sum / complex(float64(len(d.Sites)), 0)
}
