package blobtrack

import (
	"image"
	"sort"
)

// Segmenter turns a binary mask into object estimates
type Segmenter interface {
	// ProduceBlobs extracts blobs of mask inside window. History holds last states of
	// tracked objects (empty on the first frame).
	ProduceBlobs(mask *Frame, window image.Rectangle, history []ObjectState) ([]Blob, error)
	// RawBlobs returns raw blobs kept by the last ProduceBlobs call
	RawBlobs() []*RawBlob
	// Configure applies new configuration
	Configure(cfg Config)
}

// NewSegmenter creates segmenter of configured kind
func NewSegmenter(cfg Config) Segmenter {
	switch cfg.Segmenter {
	case SegmenterMoments:
		return NewMomentSegmenter(cfg)
	default:
		return NewMixtureSegmenter(cfg)
	}
}

// MixtureSegmenter estimates how many objects each raw blob holds and splits merged
// raw blobs with a Gaussian mixture. Always produces exactly NumObjects blobs when
// any raw blob survives filtering.
type MixtureSegmenter struct {
	cfg    Config
	tracer *ContourTracer
	raw    []*RawBlob
	counts []int
	fits   []FitResult
}

// NewMixtureSegmenter creates mixture segmenter
func NewMixtureSegmenter(cfg Config) *MixtureSegmenter {
	cfg.Normalize()
	return &MixtureSegmenter{
		cfg:    cfg,
		tracer: NewContourTracer(),
	}
}

// Configure applies new configuration
func (s *MixtureSegmenter) Configure(cfg Config) {
	cfg.Normalize()
	s.cfg = cfg
}

// RawBlobs returns filtered raw blobs of the last call
func (s *MixtureSegmenter) RawBlobs() []*RawBlob {
	return s.raw
}

// Counts returns estimated object count of every raw blob of the last call
func (s *MixtureSegmenter) Counts() []int {
	return s.counts
}

// Fits returns EM results of the last call, one per split raw blob
func (s *MixtureSegmenter) Fits() []FitResult {
	return s.fits
}

// ProduceBlobs implements Segmenter
func (s *MixtureSegmenter) ProduceBlobs(mask *Frame, window image.Rectangle, history []ObjectState) ([]Blob, error) {
	if mask == nil {
		return nil, ErrNilFrame
	}
	s.raw = FilterRawBlobs(
		s.tracer.Extract(mask, window),
		s.cfg.AreaThresholdLow, s.cfg.AreaThresholdHigh,
		s.cfg.PerimeterThresholdLow, s.cfg.PerimeterThresholdHigh,
	)
	s.fits = s.fits[:0]
	s.counts = EstimateCounts(s.raw, s.cfg.NumObjects)
	if len(s.raw) == 0 {
		return nil, nil
	}
	blobs := make([]Blob, 0, s.cfg.NumObjects)
	for i, rb := range s.raw {
		switch k := s.counts[i]; {
		case k == 0:
			continue
		case k == 1:
			blobs = append(blobs, EstimateShape(rb.Pixels, rb.Moments))
		default:
			mix := SeedMixture(rb, k, history, s.cfg.EMMaxIterations, s.cfg.EMTolerance)
			if s.cfg.ShareOverlapPixels {
				mix.OverlapDensity = s.cfg.OverlapDensity
			}
			groups, fit := SplitRawBlob(rb, mix)
			s.fits = append(s.fits, fit)
			for j, g := range groups {
				if g.Area() == 0 {
					blobs = append(blobs, blobFromComponent(mix.Components[j]))
					continue
				}
				blobs = append(blobs, EstimateShape(g.Pixels, g.Moments))
			}
		}
	}
	return blobs, nil
}

// MomentSegmenter treats every raw blob as one object: it keeps up to NumObjects
// largest raw blobs and orients them by third moment skewness. No splitting.
type MomentSegmenter struct {
	cfg    Config
	tracer *ContourTracer
	raw    []*RawBlob
}

// NewMomentSegmenter creates moment segmenter
func NewMomentSegmenter(cfg Config) *MomentSegmenter {
	cfg.Normalize()
	return &MomentSegmenter{
		cfg:    cfg,
		tracer: NewContourTracer(),
	}
}

// Configure applies new configuration
func (s *MomentSegmenter) Configure(cfg Config) {
	cfg.Normalize()
	s.cfg = cfg
}

// RawBlobs returns kept raw blobs of the last call, largest first
func (s *MomentSegmenter) RawBlobs() []*RawBlob {
	return s.raw
}

// ProduceBlobs implements Segmenter. History is not used
func (s *MomentSegmenter) ProduceBlobs(mask *Frame, window image.Rectangle, _ []ObjectState) ([]Blob, error) {
	if mask == nil {
		return nil, ErrNilFrame
	}
	s.raw = FilterRawBlobs(
		s.tracer.Extract(mask, window),
		s.cfg.AreaThresholdLow, s.cfg.AreaThresholdHigh,
		s.cfg.PerimeterThresholdLow, s.cfg.PerimeterThresholdHigh,
	)
	sort.SliceStable(s.raw, func(i, j int) bool {
		return s.raw[i].Area() > s.raw[j].Area()
	})
	if len(s.raw) > s.cfg.NumObjects {
		s.raw = s.raw[:s.cfg.NumObjects]
	}
	if len(s.raw) == 0 {
		return nil, nil
	}
	blobs := make([]Blob, len(s.raw))
	for i, rb := range s.raw {
		blobs[i] = EstimateShapeSkewness(rb.Moments)
	}
	return blobs, nil
}
