package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opsmith/stackctl/internal/config"
)

// StateStore persists run state per environment under the state directory.
// State files hold phase records and target addresses only; no secret
// material ever lands here.
type StateStore struct {
	dir string
}

// NewStateStore returns a store rooted at dir. An empty dir uses the default
// state directory relative to the working directory.
func NewStateStore(dir string) *StateStore {
	if dir == "" {
		dir = config.StateDir
	}
	return &StateStore{dir: dir}
}

func (s *StateStore) path(environment string) string {
	return filepath.Join(s.dir, environment+".state.yaml")
}

// Load reads the state for an environment. A missing file is not an error;
// it returns nil state.
func (s *StateStore) Load(environment string) (*RunState, error) {
	data, err := os.ReadFile(s.path(environment))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state RunState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state %s: %w", s.path(environment), err)
	}
	return &state, nil
}

// Save writes the state atomically: a torn write must never leave a
// half-parsed state file behind for the next resume.
func (s *StateStore) Save(state *RunState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, state.Environment+".state.*")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close run state: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(state.Environment)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist run state: %w", err)
	}
	return nil
}

// Clear removes an environment's state. Called after a successful destroy;
// a file that is already gone is success.
func (s *StateStore) Clear(environment string) error {
	err := os.Remove(s.path(environment))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear run state: %w", err)
	}
	return nil
}
