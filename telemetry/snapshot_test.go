package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Version:     SnapshotVersion,
		RNGSeed:     42,
		WorldWidth:  1600,
		WorldHeight: 900,
		Wrap:        true,
		Tick:        3000,
		SimTime:     50.0,
		Agents: []AgentRecord{
			{X: 100, Y: 200, VelX: 1.5, VelY: -0.5, Heading: 0.3, Panic: 0.2, Energy: 0.8, Density: 4, Nearest: 225},
			{X: 300, Y: 400, VelX: -2.0, VelY: 1.0, Heading: 2.1, Panic: 0, Energy: 1.0, Density: 1, Nearest: 900},
		},
		Predators: []PredatorRecord{
			{
				ID: 0, Archetype: "falcon",
				X: 500, Y: 450, VelX: 3.0, VelY: 0,
				State: "stalking", Energy: 75, Cooldown: 0, Target: 1,
				HuntSuccesses: 2, HuntFailures: 5,
			},
		},
		Attractors: []AttractorRecord{
			{ID: 3, X: 800, Y: 450, Strength: 0.5, Radius: 200, Remaining: 4.5},
		},
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	dir := t.TempDir()

	original := testSnapshot()
	path, err := SaveSnapshot(original, dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.RNGSeed != original.RNGSeed {
		t.Errorf("rng seed = %d, want %d", loaded.RNGSeed, original.RNGSeed)
	}
	if loaded.Tick != original.Tick {
		t.Errorf("tick = %d, want %d", loaded.Tick, original.Tick)
	}
	if loaded.WorldWidth != 1600 || loaded.WorldHeight != 900 || !loaded.Wrap {
		t.Errorf("world = %vx%v wrap=%v", loaded.WorldWidth, loaded.WorldHeight, loaded.Wrap)
	}
	if len(loaded.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(loaded.Agents))
	}
	if loaded.Agents[0] != original.Agents[0] {
		t.Errorf("agent[0] = %+v, want %+v", loaded.Agents[0], original.Agents[0])
	}
	if len(loaded.Predators) != 1 {
		t.Fatalf("predators = %d, want 1", len(loaded.Predators))
	}
	if loaded.Predators[0] != original.Predators[0] {
		t.Errorf("predator[0] = %+v, want %+v", loaded.Predators[0], original.Predators[0])
	}
	if len(loaded.Attractors) != 1 || loaded.Attractors[0] != original.Attractors[0] {
		t.Errorf("attractors = %+v, want %+v", loaded.Attractors, original.Attractors)
	}
}

func TestSnapshotFilename(t *testing.T) {
	dir := t.TempDir()

	// Without bookmark
	plain := testSnapshot()
	path, err := SaveSnapshot(plain, dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_3000.json" {
		t.Errorf("filename = %s, want snapshot_3000.json", filepath.Base(path))
	}

	// With bookmark
	marked := testSnapshot()
	marked.Tick = 5000
	marked.Bookmark = &Bookmark{Type: BookmarkPanicWave, Tick: 5000}
	path, err = SaveSnapshot(marked, dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_5000_panic_wave.json" {
		t.Errorf("filename = %s, want snapshot_5000_panic_wave.json", filepath.Base(path))
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	stale := testSnapshot()
	stale.Version = SnapshotVersion + 1
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, "stale.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version mismatch error, got nil")
	} else if !strings.Contains(err.Error(), "version") {
		t.Errorf("error = %v, want version mismatch", err)
	}
}

func TestSnapshotLoadMissingFile(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
