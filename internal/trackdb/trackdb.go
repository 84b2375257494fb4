// Package trackdb persists tracking sessions into a SQLite database
package trackdb

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/LdDl/blobtrack-go/blobtrack"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite connection holding sessions, per-frame summaries and per-object observations
type Store struct {
	*sql.DB
}

// schema.sql creates sessions, frames and observations tables
//
//go:embed schema.sql
var schemaSQL string

// Observation is a stored position of one tracked object
type Observation struct {
	Frame       int
	Index       int
	ID          uuid.UUID
	X           float64
	Y           float64
	Area        float64
	Orientation float64
}

// Open opens (or creates) database at path and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open database %s", path)
	}
	if _, err = db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't apply schema")
	}
	blobtrack.Logf("trackdb: initialized database %s", path)
	return &Store{db}, nil
}

// BeginSession stores session header
func (s *Store) BeginSession(id uuid.UUID, cfg blobtrack.Config, started time.Time) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "can't marshal config")
	}
	query := `
		INSERT INTO sessions (id, num_objects, config, start_timestamp)
		VALUES (?, ?, ?, ?)
	`
	_, err = s.Exec(query, id.String(), cfg.NumObjects, string(cfgJSON), started.UnixNano())
	if err != nil {
		return errors.Wrapf(err, "can't begin session %s", id)
	}
	return nil
}

// RecordFrame stores frame summary and every initialized object of the frame in one transaction
func (s *Store) RecordFrame(session uuid.UUID, result *blobtrack.FrameResult) (err error) {
	tx, err := s.Begin()
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	w := result.Window
	_, err = tx.Exec(`
		INSERT INTO frames (session_id, frame, timestamp_ns, window_x0, window_y0, window_x1, window_y1, recovered, raw_blobs, blobs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.String(), result.Frame, result.Timestamp.UnixNano(), w.Min.X, w.Min.Y, w.Max.X, w.Max.Y, result.Recovered, result.RawBlobs, len(result.Blobs))
	if err != nil {
		return errors.Wrapf(err, "can't insert frame %d", result.Frame)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations (session_id, frame, object_index, object_id, x, y, area, orientation, major_axis, minor_axis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "can't prepare observation insert")
	}
	defer stmt.Close()
	for _, r := range result.Reports {
		// Position of an object never matched so far is unknown
		if !r.Initialized {
			continue
		}
		_, err = stmt.Exec(session.String(), result.Frame, r.Index, r.ID.String(), r.X, r.Y, r.Area, r.Orientation, r.MajorAxis, r.MinorAxis)
		if err != nil {
			return errors.Wrapf(err, "can't insert observation of object %d", r.Index)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "can't commit frame")
	}
	return nil
}

// Observations returns stored observations of the session ordered by object index, then by frame
func (s *Store) Observations(session uuid.UUID) ([]Observation, error) {
	rows, err := s.Query(`
		SELECT frame, object_index, object_id, x, y, area, orientation
		FROM observations
		WHERE session_id = ?
		ORDER BY object_index, frame
	`, session.String())
	if err != nil {
		return nil, errors.Wrap(err, "can't query observations")
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		var o Observation
		var id string
		if err := rows.Scan(&o.Frame, &o.Index, &id, &o.X, &o.Y, &o.Area, &o.Orientation); err != nil {
			return nil, errors.Wrap(err, "can't scan observation")
		}
		if o.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "bad object id %q", id)
		}
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "can't iterate observations")
	}
	return observations, nil
}

// Tracks returns stored positions of the session grouped by object index
func (s *Store) Tracks(session uuid.UUID) (map[int][]blobtrack.Point, error) {
	observations, err := s.Observations(session)
	if err != nil {
		return nil, err
	}
	tracks := make(map[int][]blobtrack.Point)
	for _, o := range observations {
		tracks[o.Index] = append(tracks[o.Index], blobtrack.NewPoint(o.X, o.Y))
	}
	return tracks, nil
}

// FrameCount returns number of frames stored for the session
func (s *Store) FrameCount(session uuid.UUID) (int, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM frames WHERE session_id = ?`, session.String()).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "can't count frames")
	}
	return n, nil
}
