package blobtrack

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// CSVWriter writes per-object reports as ';' separated rows:
// frame;index;id;x;y;area;orientation
type CSVWriter struct {
	writer        *csv.Writer
	headerWritten bool
}

// NewCSVWriter creates writer on top of w
func NewCSVWriter(w io.Writer) *CSVWriter {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	return &CSVWriter{
		writer: writer,
	}
}

// Write writes one row per tracked object of the frame. Header is written before the first frame
func (cw *CSVWriter) Write(result *FrameResult) error {
	if !cw.headerWritten {
		err := cw.writer.Write([]string{"frame", "index", "id", "x", "y", "area", "orientation"})
		if err != nil {
			return errors.Wrap(err, "can't write CSV header")
		}
		cw.headerWritten = true
	}
	for _, r := range result.Reports {
		row := []string{
			strconv.Itoa(result.Frame),
			strconv.Itoa(r.Index),
			r.ID.String(),
			formatFloat(r.X),
			formatFloat(r.Y),
			formatFloat(r.Area),
			formatFloat(r.Orientation),
		}
		if err := cw.writer.Write(row); err != nil {
			return errors.Wrapf(err, "can't write CSV row for object %d", r.Index)
		}
	}
	return nil
}

// Flush flushes buffered rows
func (cw *CSVWriter) Flush() error {
	cw.writer.Flush()
	return cw.writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
