package shm

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// SpinLock is a cross-process mutual exclusion word living inside a
// shared segment. Every participating process maps the same word, so a
// CAS acquires the lock regardless of which process holds the mapping.
// Suitable for the short critical sections of a price table; never hold
// it across a blocking call.
type SpinLock struct {
	word *uint32
}

// SpinLockAt interprets the 4 bytes at ptr as a lock word. A zeroed
// segment yields an unlocked lock.
func SpinLockAt(ptr unsafe.Pointer) *SpinLock {
	return &SpinLock{word: (*uint32)(ptr)}
}

// Lock spins until the word is acquired, yielding the scheduler between
// attempts to avoid starving the holder.
func (l *SpinLock) Lock() {
	for {
		if atomic.CompareAndSwapUint32(l.word, 0, 1) {
			return
		}
		runtime.Gosched()
	}
}

// Unlock releases the word.
func (l *SpinLock) Unlock() {
	atomic.StoreUint32(l.word, 0)
}
