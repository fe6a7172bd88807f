// Package folder maintains the dated drop folder the uploader watches.
package folder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultLayout names folders dd-mm-YYYY.
const DefaultLayout = "02-01-2006"

// Monitor creates one folder per day below Root.
type Monitor struct {
	Root   string
	Layout string
}

func New(root, layout string) Monitor {
	if layout == "" {
		layout = DefaultLayout
	}
	return Monitor{Root: root, Layout: layout}
}

// Today returns the folder path for the day containing now.
func (m Monitor) Today(now time.Time) string {
	layout := m.Layout
	if layout == "" {
		layout = DefaultLayout
	}
	return filepath.Join(m.Root, now.Format(layout))
}

// EnsureToday creates (or finds) the folder for now and returns its path.
func (m Monitor) EnsureToday(now time.Time) (string, error) {
	if m.Root == "" {
		return "", fmt.Errorf("folder monitor: root path is empty")
	}
	dir := m.Today(now)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}
