package blobtrack

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MatchingAlgorithm is for algorithm type for matching blobs to tracked objects
type MatchingAlgorithm uint16

const (
	// MatchingKuhnMunkres solves the assignment with the built-in Kuhn-Munkres solver
	MatchingKuhnMunkres MatchingAlgorithm = iota
	// MatchingHungarian solves the assignment with github.com/arthurkushman/go-hungarian.
	// Results costlier than the Kuhn-Munkres optimum are replaced by it
	MatchingHungarian
	// MatchingGreedy pairs closest blob/object first. It does NOT give the minimum total
	// cost assignment and can swap identities of nearby objects. Meant for comparisons only
	MatchingGreedy
)

var matchingNames = map[MatchingAlgorithm]string{
	MatchingKuhnMunkres: "kuhn-munkres",
	MatchingHungarian:   "hungarian",
	MatchingGreedy:      "greedy",
}

func (m MatchingAlgorithm) String() string {
	if name, ok := matchingNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (m MatchingAlgorithm) MarshalText() ([]byte, error) {
	if _, ok := matchingNames[m]; !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown matching algorithm %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *MatchingAlgorithm) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range matchingNames {
		if v == name {
			*m = k
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidConfig, "unknown matching algorithm %q", name)
}

// SegmenterKind selects the blob producer used by the tracker
type SegmenterKind uint16

const (
	// SegmenterMixture estimates object counts per raw blob and splits merged blobs with EM
	SegmenterMixture SegmenterKind = iota
	// SegmenterMoments keeps the N largest raw blobs and orients them by third-moment skewness
	SegmenterMoments
)

var segmenterNames = map[SegmenterKind]string{
	SegmenterMixture: "mixture",
	SegmenterMoments: "moments",
}

func (s SegmenterKind) String() string {
	if name, ok := segmenterNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (s SegmenterKind) MarshalText() ([]byte, error) {
	if _, ok := segmenterNames[s]; !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown segmenter %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SegmenterKind) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range segmenterNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidConfig, "unknown segmenter %q", name)
}

// Default values
const (
	DefaultDiffThreshold     = 60
	DefaultAreaThresholdLow  = 5
	DefaultAreaThresholdHigh = 4000
	DefaultNumObjects        = 10
	DefaultSearchMargin      = 60
	DefaultResetProbability  = 0.005
	DefaultEMMaxIterations   = 50
	DefaultEMTolerance       = 1.0
	DefaultOverlapDensity    = 0.023
	DefaultHistoryLength     = 150
	DefaultArrowLength       = 20.0

	// MaxDiffThreshold is the upper bound of the difference threshold domain
	MaxDiffThreshold = 512
)

// Config holds every tunable of the segmentation and tracking pipeline
type Config struct {
	// Minimal background minus frame difference for a foreground pixel
	DiffThreshold int `json:"diff_threshold"`
	// Raw blobs with area outside [low, high] are discarded. High of 0 disables the upper bound
	AreaThresholdLow  int `json:"area_threshold_low"`
	AreaThresholdHigh int `json:"area_threshold_high"`
	// Raw blobs with perimeter outside [low, high] are discarded. High of 0 disables the upper bound
	PerimeterThresholdLow  int `json:"perimeter_threshold_low"`
	PerimeterThresholdHigh int `json:"perimeter_threshold_high"`
	// Number of tracked objects. Fixed for a tracking session
	NumObjects int `json:"num_objects"`

	// Search window margin around tracked positions, pixels
	SearchMargin int `json:"search_margin"`
	// Probability of forcing a full frame search on any given frame
	ResetProbability float64 `json:"reset_probability"`
	// Seed for the window reset draws
	Seed int64 `json:"seed"`

	// EM stopping rule: iteration cap and maximal change of means (px) and principal angles (deg)
	EMMaxIterations int     `json:"em_max_iterations"`
	EMTolerance     float64 `json:"em_tolerance"`
	// When set, a pixel of a merged blob is given to every component whose density exceeds OverlapDensity
	ShareOverlapPixels bool    `json:"share_overlap_pixels"`
	OverlapDensity     float64 `json:"overlap_density"`

	// Smooth and predict tracked positions with a 2D Kalman filter
	UseKalman bool `json:"use_kalman"`
	// Number of measurements kept per tracked object
	HistoryLength int `json:"history_length"`

	// Identity matching. "kuhn-munkres" and "hungarian" give the minimum total cost
	// assignment, "greedy" does not
	Matching  MatchingAlgorithm `json:"matching"`
	Segmenter SegmenterKind     `json:"segmenter"`

	// Drawing toggles. Not used by the pipeline itself
	DrawArrows     bool    `json:"draw_arrows"`
	DrawEllipses   bool    `json:"draw_ellipses"`
	DrawSearchRect bool    `json:"draw_search_rect"`
	ArrowLength    float64 `json:"arrow_length"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() Config {
	return Config{
		DiffThreshold:          DefaultDiffThreshold,
		AreaThresholdLow:       DefaultAreaThresholdLow,
		AreaThresholdHigh:      DefaultAreaThresholdHigh,
		PerimeterThresholdLow:  0,
		PerimeterThresholdHigh: 0,
		NumObjects:             DefaultNumObjects,
		SearchMargin:           DefaultSearchMargin,
		ResetProbability:       DefaultResetProbability,
		Seed:                   1,
		EMMaxIterations:        DefaultEMMaxIterations,
		EMTolerance:            DefaultEMTolerance,
		ShareOverlapPixels:     false,
		OverlapDensity:         DefaultOverlapDensity,
		UseKalman:              false,
		HistoryLength:          DefaultHistoryLength,
		Matching:               MatchingKuhnMunkres,
		Segmenter:              SegmenterMixture,
		DrawArrows:             true,
		DrawEllipses:           false,
		DrawSearchRect:         true,
		ArrowLength:            DefaultArrowLength,
	}
}

// LoadConfig loads configuration from a JSON file.
// The file must have a .json extension and be under 1MB. Every failure wraps ErrInvalidConfig.
// Fields omitted from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, errors.Wrapf(ErrInvalidConfig, "config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, errors.Wrapf(ErrInvalidConfig, "failed to stat config file: %v", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return cfg, errors.Wrapf(ErrInvalidConfig, "config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, errors.Wrapf(ErrInvalidConfig, "failed to read config file: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		if IsConfigurationError(err) {
			return cfg, errors.Wrap(err, "failed to parse config file")
		}
		return cfg, errors.Wrapf(ErrInvalidConfig, "failed to parse config file: %v", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config file %s", cleanPath)
	}
	return cfg, nil
}

// Normalize fixes values which have an obvious safe replacement:
// non-positive object count becomes 1, thresholds are clamped to their domains
// and zero EM or history parameters fall back to defaults.
func (cfg *Config) Normalize() {
	if cfg.NumObjects <= 0 {
		cfg.NumObjects = 1
	}
	cfg.DiffThreshold = clampInt(cfg.DiffThreshold, 0, MaxDiffThreshold)
	cfg.AreaThresholdLow = maxInt(cfg.AreaThresholdLow, 0)
	cfg.AreaThresholdHigh = maxInt(cfg.AreaThresholdHigh, 0)
	cfg.PerimeterThresholdLow = maxInt(cfg.PerimeterThresholdLow, 0)
	cfg.PerimeterThresholdHigh = maxInt(cfg.PerimeterThresholdHigh, 0)
	cfg.SearchMargin = maxInt(cfg.SearchMargin, 0)
	if cfg.EMMaxIterations <= 0 {
		cfg.EMMaxIterations = DefaultEMMaxIterations
	}
	if cfg.EMTolerance <= 0 {
		cfg.EMTolerance = DefaultEMTolerance
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = DefaultHistoryLength
	}
}

// Validate checks values which can not be normalized
func (cfg *Config) Validate() error {
	if cfg.AreaThresholdHigh > 0 && cfg.AreaThresholdHigh < cfg.AreaThresholdLow {
		return errors.Wrapf(ErrInvalidConfig, "area_threshold_high (%d) is less than area_threshold_low (%d)", cfg.AreaThresholdHigh, cfg.AreaThresholdLow)
	}
	if cfg.PerimeterThresholdHigh > 0 && cfg.PerimeterThresholdHigh < cfg.PerimeterThresholdLow {
		return errors.Wrapf(ErrInvalidConfig, "perimeter_threshold_high (%d) is less than perimeter_threshold_low (%d)", cfg.PerimeterThresholdHigh, cfg.PerimeterThresholdLow)
	}
	if cfg.ResetProbability < 0 || cfg.ResetProbability > 1 {
		return errors.Wrapf(ErrInvalidConfig, "reset_probability must be in [0, 1], got %v", cfg.ResetProbability)
	}
	if cfg.ShareOverlapPixels && cfg.OverlapDensity <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "overlap_density must be positive when share_overlap_pixels is set, got %v", cfg.OverlapDensity)
	}
	if _, ok := matchingNames[cfg.Matching]; !ok {
		return errors.Wrapf(ErrInvalidConfig, "unknown matching algorithm %d", cfg.Matching)
	}
	if _, ok := segmenterNames[cfg.Segmenter]; !ok {
		return errors.Wrapf(ErrInvalidConfig, "unknown segmenter %d", cfg.Segmenter)
	}
	return nil
}
