package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/murmur/config"
	"github.com/pthm-cable/murmur/sim"
	"github.com/pthm-cable/murmur/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	restorePath := flag.String("restore", "", "Snapshot file to resume from")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster runs)")
	workers := flag.Int("workers", 0, "Worker goroutines for the force phase (0 = GOMAXPROCS, 1 = sequential)")
	agents := flag.Int("agents", 0, "Flock size (0 = use config)")
	predators := flag.Int("predators", -1, "Predator count (-1 = use config)")
	archetype := flag.String("archetype", "", "Predator archetype name (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *agents > 0 {
		cfg.Flocking.AgentCount = *agents
	}
	if *predators >= 0 {
		cfg.Predator.Count = *predators
		cfg.Predator.Enabled = *predators > 0
	}
	if *archetype != "" {
		cfg.Predator.Archetype = *archetype
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s, err := sim.New(cfg, sim.Options{
		Seed:           rngSeed,
		Workers:        *workers,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		SnapshotDir:    *snapshotDir,
		StepsPerUpdate: *stepsPerUpdate,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if *restorePath != "" {
		snapshot, err := telemetry.LoadSnapshot(*restorePath)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		if err := s.RestoreSnapshot(snapshot); err != nil {
			slog.Error("failed to restore snapshot", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"agents", cfg.Flocking.AgentCount,
		"predators", cfg.Predator.Count,
		"max_ticks", *maxTicks,
		"steps_per_update", *stepsPerUpdate,
	)

	for {
		s.UpdateHeadless()

		if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
			stats := s.Stats()
			slog.Info("max ticks reached",
				"tick", s.Tick(),
				"sim_time", stats.SimTime,
				"avg_density", stats.AvgDensity,
				"avg_energy", stats.AvgEnergy,
			)
			return
		}
	}
}
