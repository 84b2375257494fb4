package blobtrack

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrackedObject is a persistent identity. Objects are created when the tracker is
// created and live for the whole session; they are looked up by index.
type TrackedObject struct {
	index       int
	id          uuid.UUID
	x           float64
	y           float64
	orientation float64
	area        float64
	majorAxis   float64
	minorAxis   float64
	initialized bool
	// Number of frames in a row the object was matched
	consecutiveFrames int
	// Number of frames in a row the object was not matched
	missedFrames int
	history      []Point
	maxHistory   int
	predicted    Point
	tracker      *kalman_filter.Kalman2D
	useKalman    bool
	dt           float64
}

func newTrackedObject(index int, maxHistory int, useKalman bool) *TrackedObject {
	return &TrackedObject{
		index:      index,
		id:         uuid.New(),
		x:          math.NaN(),
		y:          math.NaN(),
		history:    make([]Point, 0, maxHistory),
		maxHistory: maxHistory,
		predicted:  NewPoint(math.NaN(), math.NaN()),
		useKalman:  useKalman,
		dt:         1.0,
	}
}

// Index returns object index in [0, N)
func (o *TrackedObject) Index() int {
	return o.index
}

// GetID returns object's identifier
func (o *TrackedObject) GetID() uuid.UUID {
	return o.id
}

// Initialized reports whether the object was matched at least once
func (o *TrackedObject) Initialized() bool {
	return o.initialized
}

// Position returns last matched position. NaN before the first match
func (o *TrackedObject) Position() Point {
	return NewPoint(o.x, o.y)
}

// Orientation returns last matched orientation in degrees
func (o *TrackedObject) Orientation() float64 {
	return o.orientation
}

// Area returns area of the last matched blob
func (o *TrackedObject) Area() float64 {
	return o.area
}

// Axes returns major and minor axes of the last matched blob
func (o *TrackedObject) Axes() (float64, float64) {
	return o.majorAxis, o.minorAxis
}

// Predicted returns Kalman prediction of the next position. Without Kalman
// filter the prediction is the last position.
func (o *TrackedObject) Predicted() Point {
	if !o.useKalman || o.tracker == nil {
		return o.Position()
	}
	return o.predicted
}

// ConsecutiveFrames returns number of frames in a row the object was matched
func (o *TrackedObject) ConsecutiveFrames() int {
	return o.consecutiveFrames
}

// MissedFrames returns number of frames in a row the object was not matched
func (o *TrackedObject) MissedFrames() int {
	return o.missedFrames
}

// GetTrack returns measurement history, oldest first. Be careful: this is not copy of track, but reference to it
func (o *TrackedObject) GetTrack() []Point {
	return o.history
}

// State returns last known state for mixture seeding
func (o *TrackedObject) State() ObjectState {
	return ObjectState{
		X:           o.x,
		Y:           o.y,
		Orientation: o.orientation,
		MajorAxis:   o.majorAxis,
		MinorAxis:   o.minorAxis,
	}
}

// update pushes matched blob into the object state
func (o *TrackedObject) update(b Blob) error {
	o.x = b.X
	o.y = b.Y
	o.orientation = b.Orientation
	o.area = b.Area
	o.majorAxis = b.MajorAxis
	o.minorAxis = b.MinorAxis
	o.initialized = true
	o.consecutiveFrames++
	o.missedFrames = 0
	o.history = append(o.history, NewPoint(b.X, b.Y))
	if len(o.history) > o.maxHistory {
		o.history = o.history[1:]
	}
	if !o.useKalman {
		return nil
	}
	if o.tracker == nil {
		/* Kalman filter props */
		ux := 1.0
		uy := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		o.tracker = kalman_filter.NewKalman2D(o.dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(b.X, b.Y))
		o.predicted = NewPoint(b.X, b.Y)
		return nil
	}
	err := o.tracker.Update(b.X, b.Y)
	if err != nil {
		return errors.Wrapf(err, "Can't update Kalman filter of object %d", o.index)
	}
	return nil
}

// miss marks frame without a match. Last state is kept
func (o *TrackedObject) miss() {
	o.consecutiveFrames = 0
	o.missedFrames++
}

// predict execute Kalman filter's first step for the next frame
func (o *TrackedObject) predict() {
	if !o.useKalman || o.tracker == nil {
		return
	}
	o.tracker.Predict()
	stateX, stateY := o.tracker.GetState()
	o.predicted = NewPoint(stateX, stateY)
}
