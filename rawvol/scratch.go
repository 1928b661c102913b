package rawvol

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch is a per-run directory holding one raw file per timestep, so
// timesteps processed in parallel never share a file.
type Scratch struct {
	dir string
}

// NewScratch creates a scratch directory under parent, or the system temp
// directory if parent is empty.
func NewScratch(parent, runID string) (*Scratch, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(parent, "cvdf-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %v", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns the raw file path for a timestep.
func (s *Scratch) Path(timestep int) string {
	return filepath.Join(s.dir, fmt.Sprintf("ts-%06d.bin", timestep))
}

// Release removes a timestep's raw file.  A missing file is not an error.
func (s *Scratch) Release(timestep int) error {
	err := os.Remove(s.Path(timestep))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close removes the scratch directory and anything left in it.
func (s *Scratch) Close() error {
	return os.RemoveAll(s.dir)
}
