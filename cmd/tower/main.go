package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/zoea-tower/internal/config"
	"github.com/xonecas/zoea-tower/internal/constants"
	"github.com/xonecas/zoea-tower/internal/core"
	"github.com/xonecas/zoea-tower/internal/roster"
	"github.com/xonecas/zoea-tower/internal/store"
	"github.com/xonecas/zoea-tower/internal/tui"
	"github.com/xonecas/zoea-tower/internal/workload"
)

// Version is set at build time via ldflags.
var Version = "dev"

const summaryInterval = 10 * time.Second

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		headless    = flag.Bool("headless", false, "Run without the dashboard, logging to stderr")
		seed        = flag.Uint64("seed", 0, "Random seed (0 = from config, then clock)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Zoea Tower %s\n", Version)
		os.Exit(0)
	}

	if err := initLogging(*debug, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().Str("version", Version).Bool("headless", *headless).Msg("Starting Zoea Tower")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = uint64(time.Now().UnixNano())
	}
	log.Info().Uint64("seed", cfg.Simulation.Seed).Msg("Simulation seed")
	log.Debug().Interface("config", cfg).Msg("Configuration loaded")

	s, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer s.Close()

	agents, source, err := roster.Load(cfg, s)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load roster")
	}
	log.Info().Int("agents", len(agents)).Str("source", string(source)).Msg("Roster loaded")

	bus := core.NewEventBus(constants.MinEventBusBufferSize)
	defer bus.Close()

	// Subscribe before the first tick so no task event is missed.
	recorder := store.NewRecorder(s)
	recorderCh := bus.Subscribe()

	sim := core.NewSimulation(cfg, bus, agents, core.NewRNG(cfg.Simulation.Seed))
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sim.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Simulation stopped with error")
		}
	}()
	go func() {
		defer wg.Done()
		recorder.Consume(ctx, recorderCh)
	}()

	onSubmit := func(floor int, task core.Task) {
		if err := recorder.RecordSubmission(floor, task); err != nil {
			log.Warn().Err(err).Str("task", task.ID).Msg("Failed to record submission")
		}
	}

	if cfg.Workload.Enabled {
		gen := workload.NewGenerator(sim, core.NewRNG(cfg.Simulation.Seed+1), workload.Options{
			Floors:        cfg.Building.FloorIndexes(),
			RatePerSecond: cfg.Workload.RatePerSecond,
			Burst:         cfg.Workload.Burst,
			OnSubmit:      onSubmit,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gen.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("Workload generator stopped")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *headless {
		runHeadless(ctx, sim, sigCh)
	} else {
		model := tui.New(sim, bus.Subscribe(), onSubmit)
		program := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			select {
			case <-sigCh:
				log.Info().Msg("Received shutdown signal")
				program.Quit()
			case <-ctx.Done():
			}
		}()

		if _, err := program.Run(); err != nil {
			log.Error().Err(err).Msg("TUI error")
		}
	}

	cancel()
	if !waitTimeout(&wg, constants.StopTimeout) {
		log.Warn().Dur("timeout", constants.StopTimeout).Msg("Timed out waiting for simulation to stop")
	}

	log.Info().Dur("elapsed", sim.Elapsed()).Msg("Zoea Tower shutdown complete")
}

// runHeadless logs a tower summary periodically until a signal arrives.
func runHeadless(ctx context.Context, sim *core.Simulation, sigCh <-chan os.Signal) {
	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Info().Msg("Received shutdown signal")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			logSummary(sim.Snapshot())
		}
	}
}

func logSummary(snap core.Snapshot) {
	active := 0
	for _, f := range snap.Floors {
		active += len(f.ActiveTasks)
	}
	states := zerolog.Dict()
	for _, st := range core.AllStates {
		states.Int(string(st), snap.States[st])
	}
	log.Info().
		Dur("elapsed", snap.Elapsed).
		Int("agents", snap.Agents).
		Int("active_tasks", active).
		Dict("states", states).
		Msg("Tower summary")
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func initLogging(debug, headless bool) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if headless {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		return nil
	}

	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// Truncate on startup
	logPath := filepath.Join(dataDir, "tower.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	// The dashboard owns stdout/stderr
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	return nil
}
