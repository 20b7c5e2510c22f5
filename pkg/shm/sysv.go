// Package shm wraps SysV shared memory segments for cross-process state
// sharing without CGO. Segments are addressed by string names hashed to
// SysV keys, so cooperating processes only need to agree on the name.
package shm

import (
	"hash/fnv"
	"syscall"
	"unsafe"

	"github.com/yanun0323/errors"
)

const (
	ipcCreat = 01000
	ipcExcl  = 02000
	ipcRmid  = 0
)

// Segment is an attached SysV shared memory segment.
type Segment struct {
	ID   int
	Addr uintptr
	Size int
}

// KeyFor hashes a segment name into a SysV key. The key is always
// positive and never IPC_PRIVATE (0).
func KeyFor(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	key := int(h.Sum32() & 0x7fffffff)
	if key == 0 {
		key = 1
	}
	return key
}

// Create allocates and attaches a new segment for the given key.
// It fails if a segment with the key already exists.
func Create(key, size int) (*Segment, error) {
	totalBytes := pageAlign(size)
	id, _, errno := syscall.Syscall(sysGET, uintptr(key), uintptr(totalBytes), uintptr(ipcCreat|ipcExcl|0666))
	if errno != 0 {
		return nil, errors.Wrap(errno, "shmget create").With("key", key).With("size", totalBytes)
	}

	addr, _, errno := syscall.Syscall(sysAT, id, 0, 0)
	if errno != 0 {
		return nil, errors.Wrap(errno, "shmat").With("id", int(id))
	}

	return &Segment{ID: int(id), Addr: addr, Size: totalBytes}, nil
}

// Open attaches to an existing segment for the given key.
func Open(key, size int) (*Segment, error) {
	totalBytes := pageAlign(size)
	id, _, errno := syscall.Syscall(sysGET, uintptr(key), uintptr(totalBytes), uintptr(0666))
	if errno != 0 {
		return nil, errors.Wrap(errno, "shmget open").With("key", key).With("size", totalBytes)
	}

	addr, _, errno := syscall.Syscall(sysAT, id, 0, 0)
	if errno != 0 {
		return nil, errors.Wrap(errno, "shmat").With("id", int(id))
	}

	return &Segment{ID: int(id), Addr: addr, Size: totalBytes}, nil
}

// Detach unmaps the segment from this process.
func (s *Segment) Detach() error {
	_, _, errno := syscall.Syscall(sysDT, s.Addr, 0, 0)
	if errno != 0 {
		return errors.Wrap(errno, "shmdt").With("addr", s.Addr)
	}
	return nil
}

// Remove marks the segment for destruction. The kernel reclaims it once
// the last attachment is gone.
func (s *Segment) Remove() error {
	_, _, errno := syscall.Syscall(sysCTL, uintptr(s.ID), ipcRmid, 0)
	if errno != 0 {
		return errors.Wrap(errno, "shmctl IPC_RMID").With("id", s.ID)
	}
	return nil
}

// Ptr returns an unsafe pointer to the segment base address.
func (s *Segment) Ptr() unsafe.Pointer {
	return unsafe.Pointer(s.Addr)
}

// Zero clears the whole segment.
func (s *Segment) Zero() {
	b := unsafe.Slice((*byte)(s.Ptr()), s.Size)
	for i := range b {
		b[i] = 0
	}
}

// pageAlign rounds up to the next page boundary.
func pageAlign(size int) int {
	pageSize := syscall.Getpagesize()
	if size%pageSize == 0 {
		return size
	}
	return size + pageSize - (size % pageSize)
}
