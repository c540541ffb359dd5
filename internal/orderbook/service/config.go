package service

// Config holds configuration for the orderbook service.
type Config struct {
	// CommandBuffer is the size of the inbound command channel.
	CommandBuffer int
	// TradeBuffer is the size of the external trades channel.
	TradeBuffer int
	// TradeTapeSize is the capacity of the trade tape ring buffer.
	TradeTapeSize int
	// SnapshotLevels caps the price levels per side copied into each
	// published snapshot. Zero or less copies every level.
	SnapshotLevels int
	// DropExternalTrades drops trades instead of blocking when the external
	// channel is full.
	DropExternalTrades bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		CommandBuffer:      256,
		TradeBuffer:        1024,
		TradeTapeSize:      1000,
		SnapshotLevels:     20,
		DropExternalTrades: true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = def.CommandBuffer
	}
	if c.TradeBuffer <= 0 {
		c.TradeBuffer = def.TradeBuffer
	}
	if c.TradeTapeSize <= 0 {
		c.TradeTapeSize = def.TradeTapeSize
	}
	return c
}
