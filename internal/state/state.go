// Package state persists the previous run's total so the report can show a
// day-over-day delta.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Tracker reads the previous total and records the current one. Neither
// method fails: problems are logged and reading degrades to 0.
type Tracker interface {
	ReadPrevious() int
	SaveCurrent(total int)
}

type panorama struct {
	TotalOccurrences *int   `json:"total_occurrences,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`

	// Files written before the key rename.
	LegacyTotal *int `json:"total_ocorrencias,omitempty"`
}

// File keeps the panorama as a small JSON document, read and replaced as a
// whole. It has no locking; runs must not overlap.
type File struct {
	Path string
	Log  *zap.Logger
	Now  func() time.Time
}

func NewFile(path string, log *zap.Logger) *File {
	if log == nil {
		log = zap.NewNop()
	}
	return &File{Path: path, Log: log, Now: time.Now}
}

func (f *File) ReadPrevious() int {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.Log.Warn("panorama unreadable, assuming 0", zap.String("path", f.Path), zap.Error(err))
		}
		return 0
	}
	var p panorama
	if err := json.Unmarshal(data, &p); err != nil {
		f.Log.Warn("panorama corrupt, assuming 0", zap.String("path", f.Path), zap.Error(err))
		return 0
	}
	switch {
	case p.TotalOccurrences != nil:
		return *p.TotalOccurrences
	case p.LegacyTotal != nil:
		return *p.LegacyTotal
	}
	return 0
}

func (f *File) SaveCurrent(total int) {
	if err := f.write(total); err != nil {
		f.Log.Error("failed to save panorama", zap.String("path", f.Path), zap.Error(err))
		return
	}
	f.Log.Debug("panorama saved", zap.String("path", f.Path), zap.Int("total", total))
}

func (f *File) write(total int) error {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	data, err := json.Marshal(panorama{TotalOccurrences: &total, Timestamp: now().Format(time.RFC3339)})
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".panorama-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), f.Path)
}
