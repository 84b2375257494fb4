package blobtrack

import (
	"image"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Report is the per-object output of one frame
type Report struct {
	Index       int
	ID          uuid.UUID
	X           float64
	Y           float64
	Area        float64
	Orientation float64
	MajorAxis   float64
	MinorAxis   float64
	// False until the object was matched at least once
	Initialized bool
}

// FrameResult is the outcome of tracking one frame
type FrameResult struct {
	// 1-based frame number within the session
	Frame     int
	Timestamp time.Time
	// Window the blobs were found in
	Window image.Rectangle
	// True when nothing was found in the restricted window and the full frame was searched again
	Recovered bool
	// Number of raw blobs kept after filtering
	RawBlobs int
	// Blobs of this frame in detection order
	Blobs []Blob
	// One report per tracked object, ordered by index
	Reports []Report
}

// Tracker runs the whole pipeline frame by frame: background differencing,
// raw blob extraction inside the search window, segmentation and identity matching.
// Frames must be submitted one at a time.
type Tracker struct {
	cfg         Config
	sessionID   uuid.UUID
	differencer *Differencer
	segmenter   Segmenter
	matcher     *IdentityMatcher
	window      *SearchWindowController
	objects     []*TrackedObject
	hasHistory  bool
	lastWindow  image.Rectangle

	frameNumber      int
	firstTimestamp   time.Time
	lastTimestamp    time.Time
	frameRate        float64
	averageFrameRate float64
}

// NewTracker creates tracker. Configuration is normalized first. Background may be
// nil and set later with SetBackground; until then Track reports ErrNilBackground.
func NewTracker(cfg Config, background *Frame) (*Tracker, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker := &Tracker{
		cfg:         cfg,
		sessionID:   uuid.New(),
		differencer: NewDifferencer(),
		segmenter:   NewSegmenter(cfg),
		matcher:     NewIdentityMatcher(cfg.Matching),
		window:      NewSearchWindowController(image.Rectangle{}, cfg.SearchMargin, cfg.ResetProbability, cfg.Seed),
	}
	tracker.resetObjects()
	if background != nil {
		if err := tracker.SetBackground(background); err != nil {
			return nil, err
		}
	}
	return tracker, nil
}

// Config returns configuration in use
func (t *Tracker) Config() Config {
	return t.cfg
}

// SessionID returns identifier of the tracking session
func (t *Tracker) SessionID() uuid.UUID {
	return t.sessionID
}

// SetBackground replaces the background. Call only while tracking is paused
func (t *Tracker) SetBackground(background *Frame) error {
	if err := t.differencer.SetBackground(background); err != nil {
		return errors.Wrap(err, "can't set background")
	}
	t.window.SetBounds(background.Bounds())
	return nil
}

// SetROI sets region of interest mask, nil clears it
func (t *Tracker) SetROI(roi *Frame) error {
	if err := t.differencer.SetROI(roi); err != nil {
		return errors.Wrap(err, "can't set ROI")
	}
	return nil
}

// SetNumObjects changes number of tracked objects. Identities are recreated and
// the next frame is treated as the first one.
func (t *Tracker) SetNumObjects(n int) {
	t.cfg.NumObjects = n
	t.cfg.Normalize()
	t.segmenter.Configure(t.cfg)
	t.resetObjects()
	t.window.ForceFullFrame()
}

// SetSegmenter replaces blob producer
func (t *Tracker) SetSegmenter(s Segmenter) {
	s.Configure(t.cfg)
	t.segmenter = s
}

// Segmenter returns blob producer in use
func (t *Tracker) Segmenter() Segmenter {
	return t.segmenter
}

// Objects returns tracked objects ordered by index
func (t *Tracker) Objects() []*TrackedObject {
	objects := make([]*TrackedObject, len(t.objects))
	copy(objects, t.objects)
	return objects
}

// Object returns tracked object by index or nil
func (t *Tracker) Object(index int) *TrackedObject {
	if index < 0 || index >= len(t.objects) {
		return nil
	}
	return t.objects[index]
}

// DiffFrame returns latest background difference frame
func (t *Tracker) DiffFrame() *Frame {
	return t.differencer.DiffFrame()
}

// ThreshFrame returns latest binary mask
func (t *Tracker) ThreshFrame() *Frame {
	return t.differencer.ThreshFrame()
}

// SearchWindow returns the window used for the latest frame
func (t *Tracker) SearchWindow() image.Rectangle {
	return t.lastWindow
}

// FrameNumber returns number of processed frames
func (t *Tracker) FrameNumber() int {
	return t.frameNumber
}

// FrameRate returns rate computed from the last two frame timestamps
func (t *Tracker) FrameRate() float64 {
	return t.frameRate
}

// AverageFrameRate returns rate over the whole session
func (t *Tracker) AverageFrameRate() float64 {
	return t.averageFrameRate
}

// Track processes frame stamped with current time
func (t *Tracker) Track(frame *Frame) (*FrameResult, error) {
	return t.TrackAt(frame, time.Now())
}

// TrackAt processes one frame. Configuration errors (no background, wrong channels
// or size) leave the tracker untouched. Frames without blobs leave tracked objects
// at their last state.
func (t *Tracker) TrackAt(frame *Frame, timestamp time.Time) (*FrameResult, error) {
	mask, err := t.differencer.Apply(frame, t.cfg.DiffThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "can't threshold frame")
	}
	t.updateFrameRate(timestamp)
	t.frameNumber++
	result := &FrameResult{
		Frame:     t.frameNumber,
		Timestamp: timestamp,
	}

	t.window.SetBounds(mask.Bounds())
	window := t.window.Next(t.windowPositions())
	history := t.history()
	blobs, err := t.segmenter.ProduceBlobs(mask, window, history)
	if err != nil {
		return nil, errors.Wrap(err, "can't produce blobs")
	}
	if len(blobs) == 0 && window != t.window.FullFrame() {
		Logf("blobtrack: frame %d: nothing found in search window %v, searching full frame", t.frameNumber, window)
		window = t.window.FullFrame()
		blobs, err = t.segmenter.ProduceBlobs(mask, window, history)
		if err != nil {
			return nil, errors.Wrap(err, "can't produce blobs")
		}
		result.Recovered = true
	}
	t.lastWindow = window
	result.Window = window
	result.RawBlobs = len(t.segmenter.RawBlobs())
	result.Blobs = blobs

	switch {
	case len(blobs) == 0:
		for _, o := range t.objects {
			o.miss()
		}
	case !t.hasHistory:
		t.assignInOrder(blobs)
		t.hasHistory = true
	default:
		t.assignMatched(blobs)
	}
	for _, o := range t.objects {
		o.predict()
	}
	result.Reports = t.reports()
	return result, nil
}

// Close releases scratch buffers
func (t *Tracker) Close() {
	t.differencer.Release()
}

func (t *Tracker) resetObjects() {
	t.objects = make([]*TrackedObject, t.cfg.NumObjects)
	for i := range t.objects {
		t.objects[i] = newTrackedObject(i, t.cfg.HistoryLength, t.cfg.UseKalman)
	}
	t.hasHistory = false
}

// assignInOrder gives blob i to object i. Used on the first frame only
func (t *Tracker) assignInOrder(blobs []Blob) {
	for i, o := range t.objects {
		if i >= len(blobs) {
			o.miss()
			continue
		}
		t.updateObject(o, blobs[i])
	}
}

// assignMatched solves blob to object assignment on squared distances to the last
// (or predicted) positions. Objects never matched so far cost more than any known one.
func (t *Tracker) assignMatched(blobs []Blob) {
	positions := make([]Point, len(t.objects))
	for j, o := range t.objects {
		positions[j] = o.Predicted()
	}
	cost := SquaredDistanceCost(blobs, positions)
	maxCost := 0.0
	for i := range cost {
		for j := range cost[i] {
			if !math.IsNaN(cost[i][j]) {
				maxCost = math.Max(maxCost, cost[i][j])
			}
		}
	}
	for i := range cost {
		for j := range cost[i] {
			if math.IsNaN(cost[i][j]) {
				cost[i][j] = maxCost + 1
			}
		}
	}
	assignment := t.matcher.Match(cost)
	matched := make([]bool, len(t.objects))
	for i, j := range assignment {
		if j < 0 {
			continue
		}
		matched[j] = true
		t.updateObject(t.objects[j], blobs[i])
	}
	for j, o := range t.objects {
		if !matched[j] {
			o.miss()
		}
	}
}

func (t *Tracker) updateObject(o *TrackedObject, b Blob) {
	if err := o.update(b); err != nil {
		Logf("blobtrack: %v", err)
	}
}

// windowPositions returns positions the search window must cover
func (t *Tracker) windowPositions() []Point {
	if !t.hasHistory {
		return nil
	}
	positions := make([]Point, 0, 2*len(t.objects))
	for _, o := range t.objects {
		if !o.Initialized() {
			continue
		}
		positions = append(positions, o.Position())
		if t.cfg.UseKalman {
			if p := o.Predicted(); !p.IsNaN() {
				positions = append(positions, p)
			}
		}
	}
	return positions
}

func (t *Tracker) history() []ObjectState {
	if !t.hasHistory {
		return nil
	}
	states := make([]ObjectState, 0, len(t.objects))
	for _, o := range t.objects {
		if o.Initialized() {
			states = append(states, o.State())
		}
	}
	return states
}

func (t *Tracker) reports() []Report {
	reports := make([]Report, len(t.objects))
	for i, o := range t.objects {
		major, minor := o.Axes()
		pos := o.Position()
		reports[i] = Report{
			Index:       o.Index(),
			ID:          o.GetID(),
			X:           pos.X,
			Y:           pos.Y,
			Area:        o.Area(),
			Orientation: o.Orientation(),
			MajorAxis:   major,
			MinorAxis:   minor,
			Initialized: o.Initialized(),
		}
	}
	return reports
}

func (t *Tracker) updateFrameRate(timestamp time.Time) {
	if t.frameNumber == 0 || t.firstTimestamp.IsZero() {
		t.firstTimestamp = timestamp
		t.lastTimestamp = timestamp
		return
	}
	if dt := timestamp.Sub(t.lastTimestamp).Seconds(); dt > 0 {
		t.frameRate = 1.0 / dt
	}
	if elapsed := timestamp.Sub(t.firstTimestamp).Seconds(); elapsed > 0 {
		t.averageFrameRate = float64(t.frameNumber) / elapsed
	}
	t.lastTimestamp = timestamp
}
