// Package pricestore keeps the latest price of every tracked symbol in a
// named shared-memory table, giving each strategy process O(1) reads
// without a network round-trip.
//
// Segment layout:
//
//	[0:4)   spinlock word
//	[4:8)   reserved
//	[8:16)  symbol count, written by the creator
//	[16:..) one float64 slot per symbol, in the agreed symbol order
//
// The symbol order is agreed out-of-band: the orchestrator hands the same
// symbol list to the creator and every attacher. A slot that has never
// been updated reads as 0, which callers treat as "no data yet".
package pricestore

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
	"main/pkg/shm"
)

const (
	headerSize = 16
	slotSize   = 8
	countOff   = 8
)

// Store is one process's view of the shared price table. Exactly one
// handle per segment is the owner; only the owner may Unlink.
type Store struct {
	name    string
	seg     *shm.Segment
	lock    *shm.SpinLock
	index   map[string]int
	symbols []string
	owner   bool
	closed  bool
}

// Create allocates the named segment sized for the symbol set and
// returns the owner handle.
func Create(name string, symbols []string) (*Store, error) {
	if len(symbols) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "pricestore: no symbols")
	}

	seg, err := shm.Create(shm.KeyFor(name), headerSize+slotSize*len(symbols))
	if err != nil {
		return nil, errors.Wrap(err, "pricestore: create segment").With("name", name)
	}
	seg.Zero()

	s := newStore(name, seg, symbols, true)
	atomic.StoreUint64(s.countPtr(), uint64(len(symbols)))
	return s, nil
}

// Attach opens an existing segment by name. The symbol list must match
// the creator's; the stored count is checked against it.
func Attach(name string, symbols []string) (*Store, error) {
	if len(symbols) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "pricestore: no symbols")
	}

	seg, err := shm.Open(shm.KeyFor(name), headerSize+slotSize*len(symbols))
	if err != nil {
		return nil, errors.Wrap(err, "pricestore: attach segment").With("name", name)
	}

	s := newStore(name, seg, symbols, false)
	if got := atomic.LoadUint64(s.countPtr()); got != uint64(len(symbols)) {
		_ = seg.Detach()
		return nil, errors.Wrap(exception.ErrInvalidArgument, "pricestore: symbol count mismatch").
			With("stored", got).With("given", len(symbols))
	}
	return s, nil
}

func newStore(name string, seg *shm.Segment, symbols []string, owner bool) *Store {
	index := make(map[string]int, len(symbols))
	for i, symbol := range symbols {
		index[symbol] = i
	}
	return &Store{
		name:    name,
		seg:     seg,
		lock:    shm.SpinLockAt(seg.Ptr()),
		index:   index,
		symbols: append([]string(nil), symbols...),
		owner:   owner,
	}
}

// Name returns the segment name attachers use.
func (s *Store) Name() string {
	return s.name
}

// Owner reports whether this handle created the segment.
func (s *Store) Owner() bool {
	return s.owner
}

// Symbols returns the configured symbol set in slot order.
func (s *Store) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Update writes the latest price for a symbol.
func (s *Store) Update(symbol string, price float64) error {
	if s.closed {
		return exception.ErrStoreClosed
	}
	slot, ok := s.index[symbol]
	if !ok {
		return errors.Wrap(exception.ErrSymbolNotFound, "pricestore: update").With("symbol", symbol)
	}

	s.lock.Lock()
	atomic.StoreUint64(s.slotPtr(slot), floatBits(price))
	s.lock.Unlock()
	return nil
}

// Read returns the latest price for a symbol. A symbol that has never
// been updated reads as 0.
func (s *Store) Read(symbol string) (float64, error) {
	if s.closed {
		return 0, exception.ErrStoreClosed
	}
	slot, ok := s.index[symbol]
	if !ok {
		return 0, errors.Wrap(exception.ErrSymbolNotFound, "pricestore: read").With("symbol", symbol)
	}

	s.lock.Lock()
	bits := atomic.LoadUint64(s.slotPtr(slot))
	s.lock.Unlock()
	return floatFrom(bits), nil
}

// ReadAll returns every tracked price under a single lock acquisition.
func (s *Store) ReadAll() (map[string]float64, error) {
	if s.closed {
		return nil, exception.ErrStoreClosed
	}

	out := make(map[string]float64, len(s.symbols))
	s.lock.Lock()
	for i, symbol := range s.symbols {
		out[symbol] = floatFrom(atomic.LoadUint64(s.slotPtr(i)))
	}
	s.lock.Unlock()
	return out, nil
}

// Close detaches this process's view. It does not destroy the segment.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.seg.Detach()
}

// Unlink destroys the segment. Only the owner handle may call it, and
// only after every attacher has closed; the ordering is enforced by
// orchestration, not here.
func (s *Store) Unlink() error {
	if !s.owner {
		return errors.Wrap(exception.ErrNotOwner, "pricestore: unlink").With("name", s.name)
	}
	return s.seg.Remove()
}

func (s *Store) slotPtr(slot int) *uint64 {
	return (*uint64)(unsafe.Pointer(s.seg.Addr + headerSize + uintptr(slot)*slotSize))
}

func (s *Store) countPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(s.seg.Addr + countOff))
}

func floatBits(v float64) uint64 {
	return math.Float64bits(v)
}

func floatFrom(bits uint64) float64 {
	return math.Float64frombits(bits)
}
