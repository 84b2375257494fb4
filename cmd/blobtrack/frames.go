package main

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LdDl/blobtrack-go/blobtrack"
	"github.com/pkg/errors"
)

var frameExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// listFrames returns image files of dir in lexical order
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read frames directory %s", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// loadFrame decodes image file into a frame
func loadFrame(path string) (*blobtrack.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", path)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode %s", path)
	}
	return blobtrack.FrameFromImage(img), nil
}

// loadGrayFrame decodes image file into a single channel frame
func loadGrayFrame(path string) (*blobtrack.Frame, error) {
	frame, err := loadFrame(path)
	if err != nil {
		return nil, err
	}
	if frame.Channels != 1 {
		frame = frame.ToGray()
	}
	return frame, nil
}

// buildBackground averages first n frames
func buildBackground(files []string, n int) (*blobtrack.Frame, error) {
	if n > len(files) {
		n = len(files)
	}
	builder := blobtrack.NewBackgroundBuilder()
	for _, path := range files[:n] {
		frame, err := loadFrame(path)
		if err != nil {
			return nil, err
		}
		if err := builder.Add(frame); err != nil {
			return nil, errors.Wrapf(err, "can't add %s to background", path)
		}
	}
	return builder.Finish()
}
