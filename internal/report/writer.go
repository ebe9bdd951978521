// Package report serializes the drive-manager view to the durable on-disk
// JSON snapshot consumed by external tooling.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/drivewatch/correlator/internal/drive"
	"github.com/drivewatch/correlator/internal/model"
)

// Writer rewrites the report file in full after every state-changing event.
// Writes are synchronous: the engine does not process the next message until
// the write completed or failed, bounding report staleness to one event.
type Writer struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a report writer targeting path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger, now: time.Now}
}

// Path returns the report file location.
func (w *Writer) Path() string { return w.path }

// Write builds the report from the given manager-view snapshot and replaces
// the file atomically. A record whose status cannot be split into state and
// reason is skipped and logged; the rest of the snapshot is still written.
func (w *Writer) Write(records []drive.Record) error {
	doc := model.Report{
		Drives:         make([]model.ReportDrive, 0, len(records)),
		LastUpdateTime: w.now().Format(time.ANSIC),
	}

	for _, rec := range records {
		status, err := model.SplitStatus(rec.Status)
		if err != nil {
			w.logger.Error("Skipping unreportable drive record",
				"serial_number", rec.SerialNumber,
				"status", rec.Status,
				"error", err)
			continue
		}
		doc.Drives = append(doc.Drives, model.ReportDrive{
			Reason:       status.Reason,
			SerialNumber: rec.SerialNumber,
			Status:       status.State,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	// Full-file replace via rename so readers never observe a partial write.
	tmp, err := os.CreateTemp(dir, ".drive_manager-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace report file: %w", err)
	}

	return nil
}
