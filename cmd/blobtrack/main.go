// Command blobtrack tracks a fixed number of dark objects over a directory of frames
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/LdDl/blobtrack-go/blobtrack"
	"github.com/LdDl/blobtrack-go/internal/trackdb"
	"github.com/LdDl/blobtrack-go/internal/trackplot"
	"github.com/pkg/errors"
)

const (
	exitFailure       = 1
	exitConfiguration = 2
)

type options struct {
	configPath      string
	backgroundPath  string
	roiPath         string
	framesDir       string
	buildBackground int
	csvPath         string
	dbPath          string
	plotPath        string
	seed            int64
	seedSet         bool
	fps             float64
	numObjects      int
}

func main() {
	opts := options{}
	flag.StringVar(&opts.configPath, "config", "", "path to JSON configuration file (defaults are used when empty)")
	flag.StringVar(&opts.backgroundPath, "background", "", "path to background image")
	flag.StringVar(&opts.roiPath, "roi", "", "path to region of interest mask image (non-zero pixels are tracked)")
	flag.StringVar(&opts.framesDir, "frames", "", "directory of PNG/JPEG frames processed in lexical order")
	flag.IntVar(&opts.buildBackground, "build-background", 0, "average first N frames into the background when -background is not set")
	flag.StringVar(&opts.csvPath, "csv", "", "path to CSV output")
	flag.StringVar(&opts.dbPath, "db", "", "path to sqlite track store")
	flag.StringVar(&opts.plotPath, "plot", "", "path to trajectory plot (png, svg or pdf)")
	flag.Int64Var(&opts.seed, "seed", 1, "seed of search window reset draws")
	flag.Float64Var(&opts.fps, "fps", 25, "frame rate used to timestamp frames")
	flag.IntVar(&opts.numObjects, "n", 0, "number of tracked objects, overrides configuration when positive")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})

	if err := run(opts); err != nil {
		log.Printf("blobtrack: %v", err)
		if blobtrack.IsConfigurationError(err) {
			os.Exit(exitConfiguration)
		}
		os.Exit(exitFailure)
	}
}

func run(opts options) error {
	if opts.framesDir == "" {
		return errors.Wrap(blobtrack.ErrInvalidConfig, "-frames is required")
	}
	if opts.fps <= 0 {
		return errors.Wrapf(blobtrack.ErrInvalidConfig, "-fps must be positive, got %v", opts.fps)
	}
	cfg := blobtrack.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = blobtrack.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
	}
	if opts.seedSet {
		cfg.Seed = opts.seed
	}
	if opts.numObjects > 0 {
		cfg.NumObjects = opts.numObjects
	}

	files, err := listFrames(opts.framesDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Errorf("no frames found in %s", opts.framesDir)
	}

	var background *blobtrack.Frame
	switch {
	case opts.backgroundPath != "":
		background, err = loadGrayFrame(opts.backgroundPath)
	case opts.buildBackground > 0:
		background, err = buildBackground(files, opts.buildBackground)
	default:
		return errors.Wrap(blobtrack.ErrNilBackground, "either -background or -build-background is required")
	}
	if err != nil {
		return errors.Wrap(err, "can't prepare background")
	}

	tracker, err := blobtrack.NewTracker(cfg, background)
	if err != nil {
		return err
	}
	defer tracker.Close()
	if opts.roiPath != "" {
		roi, err := loadGrayFrame(opts.roiPath)
		if err != nil {
			return err
		}
		if err := tracker.SetROI(roi); err != nil {
			return err
		}
	}

	var csvWriter *blobtrack.CSVWriter
	if opts.csvPath != "" {
		file, err := os.Create(opts.csvPath)
		if err != nil {
			return errors.Wrapf(err, "can't create %s", opts.csvPath)
		}
		defer file.Close()
		csvWriter = blobtrack.NewCSVWriter(file)
	}

	start := time.Now()
	var store *trackdb.Store
	if opts.dbPath != "" {
		store, err = trackdb.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.BeginSession(tracker.SessionID(), tracker.Config(), start); err != nil {
			return err
		}
	}

	step := time.Duration(float64(time.Second) / opts.fps)
	recovered := 0
	for i, path := range files {
		frame, err := loadFrame(path)
		if err != nil {
			return err
		}
		result, err := tracker.TrackAt(frame, start.Add(time.Duration(i)*step))
		if err != nil {
			return errors.Wrapf(err, "frame %s", path)
		}
		if result.Recovered {
			recovered++
		}
		if csvWriter != nil {
			if err := csvWriter.Write(result); err != nil {
				return err
			}
		}
		if store != nil {
			if err := store.RecordFrame(tracker.SessionID(), result); err != nil {
				return err
			}
		}
	}
	if csvWriter != nil {
		if err := csvWriter.Flush(); err != nil {
			return errors.Wrap(err, "can't flush CSV")
		}
	}

	if opts.plotPath != "" {
		tracks, err := collectTracks(tracker, store)
		if err != nil {
			return err
		}
		if err := trackplot.Save(opts.plotPath, "Session "+tracker.SessionID().String(), tracks); err != nil {
			return err
		}
	}
	log.Printf("blobtrack: session %s: %d frames, %d objects, %d window recoveries, %.1f frames/s", tracker.SessionID(), tracker.FrameNumber(), tracker.Config().NumObjects, recovered, tracker.AverageFrameRate())
	return nil
}

// collectTracks reads full trajectories from the store when there is one. Tracked
// objects only keep the last history_length positions.
func collectTracks(tracker *blobtrack.Tracker, store *trackdb.Store) (map[int][]blobtrack.Point, error) {
	if store != nil {
		return store.Tracks(tracker.SessionID())
	}
	tracks := make(map[int][]blobtrack.Point)
	for _, o := range tracker.Objects() {
		tracks[o.Index()] = o.GetTrack()
	}
	return tracks, nil
}
