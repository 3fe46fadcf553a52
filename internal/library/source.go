package library

import (
	"fmt"

	"wavemotion/internal/bmd"
	"wavemotion/internal/motion"
)

// SourceOptions controls how source files are imported.
type SourceOptions struct {
	LEAKey [32]byte
	// FPS is the key rate of BMD actions.
	FPS float64
}

// NumActions returns the number of motions a source file holds.
func NumActions(e Entry, opts SourceOptions) (int, error) {
	if e.Source == "" {
		return 0, fmt.Errorf("library: %s has no source file", e.Name)
	}
	if !e.IsBMD() {
		return 1, nil
	}
	m, err := bmd.Parse(e.Source, opts.LEAKey)
	if err != nil {
		return 0, err
	}
	return len(m.Actions), nil
}

// LoadSource imports one motion of a source file. action selects the BMD
// action and must be 0 for JSON dumps.
func LoadSource(e Entry, action int, opts SourceOptions) (*motion.SkeletalMotion, error) {
	if e.Source == "" {
		return nil, fmt.Errorf("library: %s has no source file", e.Name)
	}
	if !e.IsBMD() {
		if action != 0 {
			return nil, fmt.Errorf("library: %s holds a single motion, got action %d", e.Name, action)
		}
		return motion.Load(e.Source)
	}
	m, err := bmd.Parse(e.Source, opts.LEAKey)
	if err != nil {
		return nil, err
	}
	return m.SourceMotion(action, opts.FPS)
}
