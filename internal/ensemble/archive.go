package ensemble

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when an ensemble ID is not in the archive.
var ErrNotFound = errors.New("ensemble not found")

const indexFile = "index.json"

// Archive keeps every ensemble fetched during a session so it can be viewed
// again or used as a comparison target. Safe for concurrent use.
type Archive struct {
	mu        sync.RWMutex
	ensembles map[string]*Ensemble
	order     []string
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{
		ensembles: make(map[string]*Ensemble),
	}
}

// Add stores an ensemble. Adding an ID twice replaces the earlier entry but
// keeps its position.
func (a *Archive) Add(e *Ensemble) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.ensembles[e.ID]; !ok {
		a.order = append(a.order, e.ID)
	}
	a.ensembles[e.ID] = e
}

// Get returns the ensemble with the given ID.
func (a *Archive) Get(id string) (*Ensemble, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.ensembles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// List returns the archived ensembles in insertion order.
func (a *Archive) List() []*Ensemble {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Ensemble, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.ensembles[id])
	}
	return out
}

// Count returns the number of archived ensembles.
func (a *Archive) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// Save persists the archive to dir: an index file plus one JSONL file per
// ensemble, each written to a temp file and renamed into place.
func (a *Archive) Save(dir string) error {
	list := a.List()
	if len(list) == 0 {
		return nil
	}

	for _, e := range list {
		path := filepath.Join(dir, fmt.Sprintf("%s.jsonl", e.ID))
		if err := writeAtomic(path, func(w io.Writer) error {
			return WriteJSONL(w, e.Trajectories)
		}); err != nil {
			return fmt.Errorf("failed to save ensemble %s: %w", e.ID, err)
		}
	}

	if err := writeAtomic(filepath.Join(dir, indexFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}); err != nil {
		return fmt.Errorf("failed to save archive index: %w", err)
	}

	log.Info().Str("dir", dir).Int("count", len(list)).Msg("Ensemble archive saved")
	return nil
}

// Load reads an archive previously written by Save. A missing index is not
// an error.
func (a *Archive) Load(dir string) error {
	raw, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Nothing archived yet
		}
		return fmt.Errorf("failed to open archive index: %w", err)
	}

	var index []*Ensemble
	if err := json.Unmarshal(raw, &index); err != nil {
		return fmt.Errorf("failed to parse archive index: %w", err)
	}

	for _, e := range index {
		file, err := os.Open(filepath.Join(dir, fmt.Sprintf("%s.jsonl", e.ID)))
		if err != nil {
			log.Warn().Err(err).Str("ensemble", e.ID).Msg("Skipping archived ensemble without data file")
			continue
		}
		trajectories, err := ReadJSONL(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("error reading ensemble %s: %w", e.ID, err)
		}
		e.Trajectories = trajectories
		a.Add(e)
	}

	log.Info().Str("dir", dir).Int("count", len(index)).Msg("Loaded ensembles from archive")
	return nil
}

// ReadJSONL reads one trajectory (a JSON array of event objects) per line.
// Invalid lines are skipped with a warning.
func ReadJSONL(r io.Reader) ([]Trajectory, error) {
	var trajectories []Trajectory
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var t Trajectory
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping invalid JSON line in ensemble file")
			continue
		}
		trajectories = append(trajectories, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ensemble file: %w", err)
	}
	return trajectories, nil
}

// WriteJSONL writes one trajectory per line.
func WriteJSONL(w io.Writer, trajectories []Trajectory) error {
	writer := bufio.NewWriter(w)
	encoder := json.NewEncoder(writer)
	for i, t := range trajectories {
		if err := encoder.Encode(t); err != nil {
			return fmt.Errorf("failed to encode trajectory %d: %w", i, err)
		}
	}
	return writer.Flush()
}

// ReadFile loads a JSONL ensemble file.
func ReadFile(path string) ([]Trajectory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ensemble file: %w", err)
	}
	defer file.Close()
	return ReadJSONL(file)
}

// WriteFile saves trajectories to a JSONL file.
func WriteFile(path string, trajectories []Trajectory) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteJSONL(w, trajectories)
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
