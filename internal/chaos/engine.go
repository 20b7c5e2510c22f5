// Package chaos perturbs a stream of wire frames to exercise downstream
// resilience: dropped ticks, duplicated ticks, and reordering within a
// bounded window. Used by feed tests and the chaosfeed tool.
package chaos

import (
	"fmt"
	"math/rand"
	"time"
)

// Config controls chaos injection behavior.
type Config struct {
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int
}

// Engine applies chaos rules to frames. Not safe for concurrent use.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending [][]byte
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow <= 0 {
		return fmt.Errorf("reorderWindow must be >= 1")
	}
	return nil
}

// Process applies chaos to one frame and returns any output frames.
// With a reorder window above 1 the frame may be buffered and emitted
// out of order later.
func (e *Engine) Process(frame []byte) [][]byte {
	if e == nil {
		return [][]byte{frame}
	}
	if e.shouldDrop() {
		return nil
	}
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(frame)
	}
	e.pending = append(e.pending, frame)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	idx := e.rng.Intn(len(e.pending))
	out := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return e.applyDuplicate(out)
}

// Flush returns any buffered frames after processing completes.
func (e *Engine) Flush() [][]byte {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([][]byte, 0, len(e.pending))
	for len(e.pending) > 0 {
		idx := e.rng.Intn(len(e.pending))
		frame := e.pending[idx]
		e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
		out = append(out, e.applyDuplicate(frame)...)
	}
	return out
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(frame []byte) [][]byte {
	out := [][]byte{frame}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, frame)
	}
	return out
}
