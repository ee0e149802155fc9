package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete simulation state for reproducible restarts.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	WorldWidth  float32 `json:"world_width"`
	WorldHeight float32 `json:"world_height"`
	Wrap        bool    `json:"wrap"`

	Tick    int32   `json:"tick"`
	SimTime float64 `json:"sim_time"`

	Agents     []AgentRecord     `json:"agents"`
	Predators  []PredatorRecord  `json:"predators"`
	Attractors []AttractorRecord `json:"attractors,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// AgentRecord holds one agent's complete state.
type AgentRecord struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	VelX    float32 `json:"vel_x"`
	VelY    float32 `json:"vel_y"`
	Heading float32 `json:"heading"`
	Panic   float32 `json:"panic"`
	Energy  float32 `json:"energy"`
	Density float32 `json:"density"`
	Nearest float32 `json:"nearest"`
}

// PredatorRecord holds one predator's complete state. State is stored by
// name so snapshots survive enum reordering.
type PredatorRecord struct {
	ID        int     `json:"id"`
	Archetype string  `json:"archetype"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	VelX      float32 `json:"vel_x"`
	VelY      float32 `json:"vel_y"`
	State     string  `json:"state"`
	Energy    float32 `json:"energy"`
	Cooldown  float32 `json:"cooldown"`
	Target    int32   `json:"target"`

	HuntSuccesses int `json:"hunt_successes"`
	HuntFailures  int `json:"hunt_failures"`
}

// AttractorRecord holds one attractor's state, including remaining life.
type AttractorRecord struct {
	ID        int32   `json:"id"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Strength  float32 `json:"strength"`
	Radius    float32 `json:"radius"`
	Remaining float32 `json:"remaining"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d not supported (want %d)", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
