// Command housesim runs the housing market simulation.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/talgya/terrace/internal/api"
	"github.com/talgya/terrace/internal/config"
	"github.com/talgya/terrace/internal/engine"
	"github.com/talgya/terrace/internal/entropy"
	"github.com/talgya/terrace/internal/persistence"
	"github.com/talgya/terrace/internal/town"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	// ── Configuration ─────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("terrace — housing market simulation",
		"grid", cfg.GridWidth*cfg.GridHeight,
		"steps", cfg.Steps,
		"seed", cfg.Seed,
		"interest_rate", cfg.InterestRate,
		"max_ltv", cfg.MaxLTV,
	)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Seed World ────────────────────────────────────────────
	grid := town.NewGrid(cfg.GridWidth, cfg.GridHeight)
	rng := entropy.NewSource(cfg.Seed)
	sim := engine.NewSimulation(cfg, grid, rng)

	if db.HasState() {
		slog.Info("found saved state, loading...")
		startStep, err := db.LoadState(sim)
		if err != nil {
			slog.Error("failed to load state", "error", err)
			os.Exit(1)
		}
		sim.LastStep = startStep
		sim.RebuildPlots()
	} else {
		slog.Info("no saved state found, seeding new world...")
		sim.SeedWorld()
		if err := db.SaveState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("TERRACE_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}
	var mu sync.Mutex
	apiServer := &api.Server{
		Sim:      sim,
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
		Mu:       &mu,
	}
	apiServer.Start()

	// ── Step Loop ─────────────────────────────────────────────────────
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		defer close(done)
		for step := 0; cfg.Steps <= 0 || step < cfg.Steps; step++ {
			select {
			case <-stop:
				return
			default:
			}

			mu.Lock()
			sim.Step()
			extinct := sim.Extinct()
			mu.Unlock()

			if extinct {
				slog.Warn("simulation reached terminal state", "step", sim.CurrentStep())
				return
			}
			if cfg.SaveEvery > 0 && int(sim.CurrentStep())%cfg.SaveEvery == 0 {
				mu.Lock()
				err := db.SaveState(sim)
				mu.Unlock()
				if err != nil {
					slog.Error("periodic save failed", "error", err)
				}
			}
		}
	}()

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig)
		close(stop)
		<-done
	case <-done:
		slog.Info("run complete", "step", sim.CurrentStep())
	}

	mu.Lock()
	err = db.SaveState(sim)
	mu.Unlock()
	if err != nil {
		slog.Error("final save failed", "error", err)
		os.Exit(1)
	}
	slog.Info("goodbye")
}
