package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/lobsim/internal/app"
	"github.com/zappabad/lobsim/internal/config"
	"github.com/zappabad/lobsim/internal/logging"
	"github.com/zappabad/lobsim/tui"
)

const (
	defaultLogFile = "lobsim.log"
	defaultSpeed   = 5
)

func main() {
	envPath := flag.String("env", ".env", "path to an optional .env file")
	depth := flag.Int("depth", 10, "initial price levels per side on the depth chart")
	flag.Parse()

	if err := run(*envPath, *depth); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func run(envPath string, depth int) error {
	cfg, err := config.LoadFromEnv(envPath)
	if err != nil {
		return err
	}
	// The book is watched live, so the run is paced and open ended unless
	// configured otherwise.
	if cfg.Simulation.Speed <= 0 {
		cfg.Simulation.Speed = defaultSpeed
	}
	if _, ok := os.LookupEnv("SIM_ORDERS"); !ok {
		cfg.Simulation.Orders = 0
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogFile
	}

	// The screen belongs to the TUI; logs go to the file only.
	logger, err := logging.NewFileLogger(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Errorw("shutdown failed", "error", err)
		}
	}()

	simCtx, cancelSim := context.WithCancel(ctx)
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		if _, err := a.Run(simCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("simulation stopped", "error", err)
		}
	}()

	model := tui.NewModel(a.Service, tui.Config{
		Depth:        depth,
		IDs:          a.IDs,
		Now:          a.Clock.Now,
		Counterparty: app.ManualCounterparty,
		Stats:        a.Simulation.Stats,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	cancelSim()
	<-simDone
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
