package simulation

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	// Orders is the number of orders to generate. Zero or less runs until
	// the context is canceled.
	Orders int
	// StartTime is the simulated time before the first arrival.
	StartTime time.Time
	// Speed scales simulated time to wall time. 0 runs as fast as possible,
	// 1 is real time, 10 is ten times faster.
	Speed float64
	// LogEvery logs progress every n orders. Zero disables it.
	LogEvery int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Orders:    1000,
		StartTime: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		LogEvery:  250,
	}
}
