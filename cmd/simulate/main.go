package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zappabad/lobsim/internal/app"
	"github.com/zappabad/lobsim/internal/config"
	"github.com/zappabad/lobsim/internal/logging"
	"github.com/zappabad/lobsim/internal/simulation"
	"github.com/zappabad/lobsim/tui/panels"
)

func main() {
	envPath := flag.String("env", ".env", "path to an optional .env file")
	orders := flag.Int("orders", -1, "number of orders to generate (overrides SIM_ORDERS, 0 runs until interrupted)")
	depth := flag.Int("depth", 5, "price levels per side in the final depth chart")
	width := flag.Int("width", 80, "width of the final depth chart")
	flag.Parse()

	if err := run(*envPath, *orders, *depth, *width); err != nil {
		fmt.Fprintf(os.Stderr, "lobsim: %v\n", err)
		os.Exit(1)
	}
}

func run(envPath string, orders, depth, width int) error {
	cfg, err := config.LoadFromEnv(envPath)
	if err != nil {
		return err
	}
	if orders >= 0 {
		cfg.Simulation.Orders = orders
	}

	var logger *zap.Logger
	if cfg.Log.File != "" {
		logger, err = logging.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	} else {
		logger, err = logging.NewLogger(cfg.Log.Level)
	}
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

	res, err := a.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printSummary(res, a.Service.DroppedTrades())
	fmt.Println()
	fmt.Println(panels.RenderDepthChart(a.Service.Snapshot(), depth, width))
	return nil
}

func printSummary(r simulation.Result, dropped int64) {
	fmt.Printf("orders     %d (%d limit, %d market, %d buy, %d sell)\n", r.Orders, r.Limit, r.Market, r.Buys, r.Sells)
	fmt.Printf("outcomes   %d filled, %d rested, %d rejected, %d invalid\n", r.Filled, r.Rested, r.Rejected, r.Invalid)
	fmt.Printf("trades     %d, volume %d, notional %.2f\n", r.Trades, r.Volume, r.Notional)
	if vwap, ok := r.VWAP(); ok {
		fmt.Printf("vwap       %.4f\n", vwap)
	}
	fmt.Printf("sim time   %s (mean interarrival %s)\n", r.Elapsed(), r.MeanInterarrival())
	if dropped > 0 {
		fmt.Printf("dropped    %d trade notifications\n", dropped)
	}
}
