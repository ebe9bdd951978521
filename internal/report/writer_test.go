package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivewatch/correlator/internal/drive"
	"github.com/drivewatch/correlator/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(t *testing.T, serial, status string) drive.Record {
	t.Helper()
	rec, ok := drive.NewManagerRecord("host-1", "ENC1/disk/3/status", status, serial)
	require.True(t, ok)
	return rec
}

func readReport(t *testing.T, path string) model.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc model.Report
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestWriteCreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dmreport", "drive_manager.json")
	w := NewWriter(path, testLogger())

	require.NoError(t, w.Write([]drive.Record{record(t, "SN42", "failed_smart")}))

	doc := readReport(t, path)
	require.Len(t, doc.Drives, 1)
	assert.Equal(t, "SN42", doc.Drives[0].SerialNumber)
	assert.Equal(t, "failed", doc.Drives[0].Status)
	assert.Equal(t, "smart", doc.Drives[0].Reason)
	assert.NotEmpty(t, doc.LastUpdateTime)
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive_manager.json")
	w := NewWriter(path, testLogger())

	statuses := map[string]string{
		"SN1": "inuse_ok",
		"SN2": "failed_smart_failure",
		"SN3": "empty_none",
	}
	var records []drive.Record
	for serial, status := range statuses {
		records = append(records, record(t, serial, status))
	}

	require.NoError(t, w.Write(records))

	// Re-joining state and reason reproduces every stored status string
	doc := readReport(t, path)
	require.Len(t, doc.Drives, len(statuses))
	for _, d := range doc.Drives {
		assert.Equal(t, statuses[d.SerialNumber], d.Status+"_"+d.Reason)
	}
}

func TestWriteSkipsUnsplittableStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive_manager.json")
	w := NewWriter(path, testLogger())

	records := []drive.Record{
		record(t, "SN1", "inuse_ok"),
		record(t, "SN2", "bogus"),
		record(t, "SN3", "ok_none"),
	}

	// The bad record is skipped; the rest of the snapshot is still written
	require.NoError(t, w.Write(records))

	doc := readReport(t, path)
	require.Len(t, doc.Drives, 2)
	assert.Equal(t, "SN1", doc.Drives[0].SerialNumber)
	assert.Equal(t, "SN3", doc.Drives[1].SerialNumber)
}

func TestWriteReplacesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive_manager.json")
	w := NewWriter(path, testLogger())

	require.NoError(t, w.Write([]drive.Record{record(t, "SN1", "inuse_ok"), record(t, "SN2", "ok_none")}))
	require.NoError(t, w.Write([]drive.Record{record(t, "SN1", "failed_smart")}))

	doc := readReport(t, path)
	require.Len(t, doc.Drives, 1)
	assert.Equal(t, "failed", doc.Drives[0].Status)
}
