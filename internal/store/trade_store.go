// Package store persists the trade log in Pebble.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/zappabad/lobsim/internal/orderbook/core"
)

var ErrClosed = errors.New("trade store closed")

// keys: t:<8-byte big-endian seq>
var tradePrefix = []byte("t:")

func tradeKey(seq uint64) []byte {
	k := make([]byte, len(tradePrefix)+8)
	copy(k, tradePrefix)
	binary.BigEndian.PutUint64(k[len(tradePrefix):], seq)
	return k
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// TradeStore is an append-only trade log. Safe for concurrent use.
type TradeStore struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// OpenTradeStore opens or creates a store at path and resumes its sequence.
func OpenTradeStore(path string) (*TradeStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	s := &TradeStore{db: db}
	if err := s.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *TradeStore) iter() (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{
		LowerBound: tradePrefix,
		UpperBound: keyUpperBound(tradePrefix),
	})
}

func (s *TradeStore) recoverSeq() error {
	it, err := s.iter()
	if err != nil {
		return fmt.Errorf("scan trades: %w", err)
	}
	defer it.Close()
	if it.Last() {
		s.seq = binary.BigEndian.Uint64(it.Key()[len(tradePrefix):])
	}
	return it.Error()
}

// Append writes trades in one synced batch.
func (s *TradeStore) Append(trades []core.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	b := s.db.NewBatch()
	defer b.Close()

	seq := s.seq
	for _, tr := range trades {
		data, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("failed to marshal trade: %w", err)
		}
		seq++
		if err := b.Set(tradeKey(seq), data, nil); err != nil {
			return fmt.Errorf("failed to stage trade: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save trades: %w", err)
	}
	s.seq = seq
	return nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// All loads every stored trade, oldest first.
func (s *TradeStore) All() ([]core.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	it, err := s.iter()
	if err != nil {
		return nil, fmt.Errorf("scan trades: %w", err)
	}
	defer it.Close()

	var out []core.Trade
	for it.First(); it.Valid(); it.Next() {
		var tr core.Trade
		if err := json.Unmarshal(it.Value(), &tr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade %x: %w", it.Key(), err)
		}
		out = append(out, tr)
	}
	return out, it.Error()
}

// Close flushes and closes the database. Later calls are no-ops.
func (s *TradeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
