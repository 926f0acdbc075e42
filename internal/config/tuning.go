package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Bearing likelihood methods accepted by bearing_method.
const (
	MethodBartlet = "bartlet"
	MethodMLE     = "mle"
)

// Covariance estimators accepted by covariance_method.
const (
	CovarianceNone       = "none"
	CovarianceAsymptotic = "asym"
	CovarianceBoot       = "boot"
	CovarianceBoot2      = "boot2"
	CovarianceBoot3      = "boot3"
)

// TuningConfig is the on-disk form of the estimation parameters. Every
// field is optional; the Get* accessors supply the default when a field is
// omitted so partial files are safe.
type TuningConfig struct {
	// Bearing and spectrum
	BearingMethod     *string  `json:"bearing_method,omitempty"`
	NormalizeSpectrum *bool    `json:"normalize_spectrum,omitempty"`
	ScoreThreshold    *float64 `json:"score_threshold,omitempty"`

	// Position grid search
	HalfSpan       *int     `json:"half_span,omitempty"`
	CoarseExponent *int     `json:"coarse_exponent,omitempty"`
	FineExponent   *int     `json:"fine_exponent,omitempty"`
	ScaleBase      *float64 `json:"scale_base,omitempty"`
	EdgeRetries    *int     `json:"edge_retries,omitempty"`

	// Windowing (seconds)
	WindowStepSeconds   *float64 `json:"window_step_seconds,omitempty"`
	WindowLengthSeconds *float64 `json:"window_length_seconds,omitempty"`

	// Covariance
	CovarianceMethod *string   `json:"covariance_method,omitempty"`
	BootMaxResamples *int      `json:"boot_max_resamples,omitempty"`
	ConfLevels       []float64 `json:"conf_levels,omitempty"`
	Seed             *uint64   `json:"seed,omitempty"`

	// Track reconstruction
	TrackWindowLength        *int     `json:"track_window_length,omitempty"`
	TrackOverlapLength       *int     `json:"track_overlap_length,omitempty"`
	TrackHopCost             *float64 `json:"track_hop_cost,omitempty"`
	BurstIntervalSeconds     *float64 `json:"burst_interval_seconds,omitempty"`
	SustainedIntervalSeconds *float64 `json:"sustained_interval_seconds,omitempty"`

	// Worker pool
	Workers    *int `json:"workers,omitempty"`
	QueueDepth *int `json:"queue_depth,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		BearingMethod:            ptrString(c.GetBearingMethod()),
		NormalizeSpectrum:        ptrBool(c.GetNormalizeSpectrum()),
		HalfSpan:                 ptrInt(c.GetHalfSpan()),
		CoarseExponent:           ptrInt(c.GetCoarseExponent()),
		FineExponent:             ptrInt(c.GetFineExponent()),
		ScaleBase:                ptrFloat64(c.GetScaleBase()),
		EdgeRetries:              ptrInt(c.GetEdgeRetries()),
		WindowStepSeconds:        ptrFloat64(c.GetWindowStepSeconds()),
		WindowLengthSeconds:      ptrFloat64(c.GetWindowLengthSeconds()),
		CovarianceMethod:         ptrString(c.GetCovarianceMethod()),
		BootMaxResamples:         ptrInt(c.GetBootMaxResamples()),
		ConfLevels:               c.GetConfLevels(),
		TrackWindowLength:        ptrInt(c.GetTrackWindowLength()),
		TrackOverlapLength:       ptrInt(c.GetTrackOverlapLength()),
		TrackHopCost:             ptrFloat64(c.GetTrackHopCost()),
		BurstIntervalSeconds:     ptrFloat64(c.GetBurstIntervalSeconds()),
		SustainedIntervalSeconds: ptrFloat64(c.GetSustainedIntervalSeconds()),
		Workers:                  ptrInt(c.GetWorkers()),
		QueueDepth:               ptrInt(c.GetQueueDepth()),
	}
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.BearingMethod != nil {
		switch *c.BearingMethod {
		case MethodBartlet, MethodMLE:
		default:
			return fmt.Errorf("bearing_method must be %q or %q, got %q", MethodBartlet, MethodMLE, *c.BearingMethod)
		}
	}
	if c.CovarianceMethod != nil {
		switch *c.CovarianceMethod {
		case CovarianceNone, CovarianceAsymptotic, CovarianceBoot, CovarianceBoot2, CovarianceBoot3:
		default:
			return fmt.Errorf("unknown covariance_method %q", *c.CovarianceMethod)
		}
		if *c.CovarianceMethod == CovarianceAsymptotic && !c.GetNormalizeSpectrum() {
			return fmt.Errorf("covariance_method %q requires normalize_spectrum", CovarianceAsymptotic)
		}
	}
	if c.HalfSpan != nil && *c.HalfSpan < 1 {
		return fmt.Errorf("half_span must be positive, got %d", *c.HalfSpan)
	}
	if c.GetCoarseExponent() < c.GetFineExponent() {
		return fmt.Errorf("coarse_exponent (%d) must be >= fine_exponent (%d)", c.GetCoarseExponent(), c.GetFineExponent())
	}
	if c.ScaleBase != nil && *c.ScaleBase <= 1 {
		return fmt.Errorf("scale_base must be greater than 1, got %f", *c.ScaleBase)
	}
	if c.EdgeRetries != nil && *c.EdgeRetries < 1 {
		return fmt.Errorf("edge_retries must be at least 1, got %d", *c.EdgeRetries)
	}
	if c.WindowLengthSeconds != nil && *c.WindowLengthSeconds <= 0 {
		return fmt.Errorf("window_length_seconds must be positive, got %f", *c.WindowLengthSeconds)
	}
	if c.WindowStepSeconds != nil && *c.WindowStepSeconds <= 0 {
		return fmt.Errorf("window_step_seconds must be positive, got %f", *c.WindowStepSeconds)
	}
	if c.BootMaxResamples != nil && *c.BootMaxResamples < 1 {
		return fmt.Errorf("boot_max_resamples must be positive, got %d", *c.BootMaxResamples)
	}
	for _, level := range c.ConfLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("conf_levels must lie in (0, 1), got %f", level)
		}
	}
	if c.GetTrackOverlapLength() >= c.GetTrackWindowLength() {
		return fmt.Errorf("track_overlap_length (%d) must be smaller than track_window_length (%d)",
			c.GetTrackOverlapLength(), c.GetTrackWindowLength())
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetBearingMethod returns the bearing_method value or the default.
func (c *TuningConfig) GetBearingMethod() string {
	if c.BearingMethod == nil {
		return MethodBartlet // default
	}
	return *c.BearingMethod
}

// GetNormalizeSpectrum returns the normalize_spectrum value or the default.
func (c *TuningConfig) GetNormalizeSpectrum() bool {
	if c.NormalizeSpectrum == nil {
		return false // default
	}
	return *c.NormalizeSpectrum
}

// GetHalfSpan returns the half_span value or the default.
func (c *TuningConfig) GetHalfSpan() int {
	if c.HalfSpan == nil {
		return 10 // default
	}
	return *c.HalfSpan
}

// GetCoarseExponent returns the coarse_exponent value or the default.
func (c *TuningConfig) GetCoarseExponent() int {
	if c.CoarseExponent == nil {
		return 3 // default
	}
	return *c.CoarseExponent
}

// GetFineExponent returns the fine_exponent value or the default.
func (c *TuningConfig) GetFineExponent() int {
	if c.FineExponent == nil {
		return -1 // default
	}
	return *c.FineExponent
}

// GetScaleBase returns the scale_base value or the default.
func (c *TuningConfig) GetScaleBase() float64 {
	if c.ScaleBase == nil {
		return 5 // default
	}
	return *c.ScaleBase
}

// GetEdgeRetries returns the edge_retries value or the default.
func (c *TuningConfig) GetEdgeRetries() int {
	if c.EdgeRetries == nil {
		return 3
	}
	return *c.EdgeRetries
}

// GetWindowStepSeconds returns the window_step_seconds value or the default.
func (c *TuningConfig) GetWindowStepSeconds() float64 {
	if c.WindowStepSeconds == nil {
		return 15
	}
	return *c.WindowStepSeconds
}

// GetWindowLengthSeconds returns the window_length_seconds value or the default.
func (c *TuningConfig) GetWindowLengthSeconds() float64 {
	if c.WindowLengthSeconds == nil {
		return 30
	}
	return *c.WindowLengthSeconds
}

// GetCovarianceMethod returns the covariance_method value or the default.
func (c *TuningConfig) GetCovarianceMethod() string {
	if c.CovarianceMethod == nil {
		return CovarianceBoot2
	}
	return *c.CovarianceMethod
}

// GetBootMaxResamples returns the boot_max_resamples value or the default.
func (c *TuningConfig) GetBootMaxResamples() int {
	if c.BootMaxResamples == nil {
		return 200
	}
	return *c.BootMaxResamples
}

// GetConfLevels returns the conf_levels value or the default set.
func (c *TuningConfig) GetConfLevels() []float64 {
	if len(c.ConfLevels) == 0 {
		return []float64{0.68, 0.80, 0.90, 0.95, 0.997}
	}
	out := make([]float64, len(c.ConfLevels))
	copy(out, c.ConfLevels)
	return out
}

// GetSeed returns the resampling seed or the default.
func (c *TuningConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetTrackWindowLength returns the track_window_length value or the default.
func (c *TuningConfig) GetTrackWindowLength() int {
	if c.TrackWindowLength == nil {
		return 500
	}
	return *c.TrackWindowLength
}

// GetTrackOverlapLength returns the track_overlap_length value or the default.
func (c *TuningConfig) GetTrackOverlapLength() int {
	if c.TrackOverlapLength == nil {
		return 100
	}
	return *c.TrackOverlapLength
}

// GetTrackHopCost returns the track_hop_cost value or the default.
func (c *TuningConfig) GetTrackHopCost() float64 {
	if c.TrackHopCost == nil {
		return 1
	}
	return *c.TrackHopCost
}

// GetBurstIntervalSeconds returns the burst_interval_seconds value or the default.
func (c *TuningConfig) GetBurstIntervalSeconds() float64 {
	if c.BurstIntervalSeconds == nil {
		return 60 // 1 minute
	}
	return *c.BurstIntervalSeconds
}

// GetSustainedIntervalSeconds returns the sustained_interval_seconds value or the default.
func (c *TuningConfig) GetSustainedIntervalSeconds() float64 {
	if c.SustainedIntervalSeconds == nil {
		return 1800 // 30 minutes
	}
	return *c.SustainedIntervalSeconds
}

// GetWorkers returns the worker count. Zero means run synchronously.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetQueueDepth returns the queue_depth value or the default.
func (c *TuningConfig) GetQueueDepth() int {
	if c.QueueDepth == nil || *c.QueueDepth < 1 {
		return 16
	}
	return *c.QueueDepth
}
