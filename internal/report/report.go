// Package report writes extracted records to a timestamped CSV file.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000000000"
	extension       = ".csv"
	maxAttempts     = 1000
)

// Record is one output line: the extracted author and the URL it came from.
type Record struct {
	Author string
	URL    string
}

// FileName returns the report file name for t in local time, with colons
// replaced so the name is safe on every filesystem.
func FileName(t time.Time) string {
	return strings.ReplaceAll(t.Local().Format(timestampLayout), ":", "-") + extension
}

// Writer streams records as author,url lines.
type Writer struct {
	csv *csv.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write writes one line per record and flushes. Lines written before an
// error stay written.
func (w *Writer) Write(records []Record) (int, error) {
	n := 0
	for _, r := range records {
		if err := w.csv.Write([]string{r.Author, r.URL}); err != nil {
			return n, fmt.Errorf("write record for %s: %w", r.URL, err)
		}
		n++
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return n, fmt.Errorf("flush report: %w", err)
	}
	return n, nil
}

// Create makes dir if needed and opens a new report file named after now.
// An existing file is never overwritten: on a name clash the timestamp is
// moved forward one nanosecond at a time.
func Create(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	for i := 0; i < maxAttempts; i++ {
		path := filepath.Join(dir, FileName(now.Add(time.Duration(i))))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create report file: %w", err)
		}
	}
	return nil, fmt.Errorf("create report file in %s: no free name after %d attempts", dir, maxAttempts)
}

// WriteFile creates a new report file in dir and writes records to it. The
// returned path is set whenever the file was created, even if writing failed.
func WriteFile(dir string, now time.Time, records []Record) (string, int, error) {
	f, err := Create(dir, now)
	if err != nil {
		return "", 0, err
	}
	path := f.Name()

	n, werr := NewWriter(f).Write(records)
	if cerr := f.Close(); cerr != nil && werr == nil {
		werr = fmt.Errorf("close report: %w", cerr)
	}
	return path, n, werr
}
