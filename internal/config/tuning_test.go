package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.HalfSpan == nil || *cfg.HalfSpan != 10 {
		t.Errorf("Expected HalfSpan 10, got %v", cfg.HalfSpan)
	}
	if cfg.NormalizeSpectrum == nil || *cfg.NormalizeSpectrum != false {
		t.Errorf("Expected NormalizeSpectrum false, got %v", cfg.NormalizeSpectrum)
	}
	if cfg.GetCoarseExponent() != 3 || cfg.GetFineExponent() != -1 {
		t.Errorf("exponents = (%d, %d), want (3, -1)", cfg.GetCoarseExponent(), cfg.GetFineExponent())
	}
	if cfg.GetScaleBase() != 5 {
		t.Errorf("GetScaleBase() = %f, want 5", cfg.GetScaleBase())
	}
	if cfg.GetBootMaxResamples() != 200 {
		t.Errorf("GetBootMaxResamples() = %d, want 200", cfg.GetBootMaxResamples())
	}
	if got := len(cfg.GetConfLevels()); got != 5 {
		t.Errorf("len(GetConfLevels()) = %d, want 5", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "bearing_method": "mle",
  "normalize_spectrum": true,
  "half_span": 15,
  "covariance_method": "asym",
  "track_window_length": 50,
  "track_overlap_length": 10
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetBearingMethod() != MethodMLE {
		t.Errorf("GetBearingMethod() = %q, want %q", cfg.GetBearingMethod(), MethodMLE)
	}
	if !cfg.GetNormalizeSpectrum() {
		t.Error("Expected NormalizeSpectrum true")
	}
	if cfg.GetHalfSpan() != 15 {
		t.Errorf("GetHalfSpan() = %d, want 15", cfg.GetHalfSpan())
	}
	// Omitted fields fall back to defaults
	if cfg.GetScaleBase() != 5 {
		t.Errorf("GetScaleBase() = %f, want default 5", cfg.GetScaleBase())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	cases := map[string]string{
		"bad_method.json":   `{"bearing_method": "music"}`,
		"asym_no_norm.json": `{"covariance_method": "asym"}`,
		"exponents.json":    `{"coarse_exponent": -2, "fine_exponent": 1}`,
		"overlap.json":      `{"track_window_length": 10, "track_overlap_length": 10}`,
		"conf_level.json":   `{"conf_levels": [0.5, 1.0]}`,
		"scale_base.json":   `{"scale_base": 1}`,
		"malformed.json":    `{"half_span": `,
	}
	for name, body := range cases {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Errorf("LoadTuningConfig(%s) succeeded, want error", name)
		}
	}

	yamlPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(yamlPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write yaml: %v", err)
	}
	if _, err := LoadTuningConfig(yamlPath); err == nil {
		t.Error("Expected error for non-json extension")
	}

	if _, err := LoadTuningConfig(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetHalfSpan() != 10 {
		t.Errorf("defaults file half_span = %d, want 10", cfg.GetHalfSpan())
	}
	if cfg.GetTrackWindowLength() != 500 || cfg.GetTrackOverlapLength() != 100 {
		t.Errorf("defaults file track window = (%d, %d), want (500, 100)",
			cfg.GetTrackWindowLength(), cfg.GetTrackOverlapLength())
	}
}

func TestParams(t *testing.T) {
	p := DefaultParams()

	scales := p.Search.Scales()
	want := []float64{125, 25, 5, 1, 0.2}
	if len(scales) != len(want) {
		t.Fatalf("Scales() = %v, want %v", scales, want)
	}
	for i := range want {
		if d := scales[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Errorf("Scales()[%d] = %f, want %f", i, scales[i], want[i])
		}
	}

	coarser := p.Search.Coarser()
	if coarser.Coarse != 2 || p.Search.Coarse != 3 {
		t.Errorf("Coarser() = %d (original %d), want 2 (original 3)", coarser.Coarse, p.Search.Coarse)
	}

	if p.Covariance.MaxResamples != 200 || p.Track.BurstInterval != 60 || p.Track.SustainedInterval != 1800 {
		t.Errorf("unexpected defaults: %+v %+v", p.Covariance, p.Track)
	}
	if p.ScoreThreshold != nil {
		t.Errorf("ScoreThreshold = %v, want nil", *p.ScoreThreshold)
	}
}
