package shmem

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/srediag/shmem/internal/mapping"
)

// Shmem is a live handle to a mapped shared memory segment. The mapped
// bytes stay valid for exactly the handle's lifetime: after Close they must
// not be touched again.
type Shmem struct {
	conf   Conf
	m      *mapping.MapData
	inst   *instruments
	closed atomic.Bool
}

// IsOwner reports whether this handle is responsible for destroying the
// backing region (and the reference file) on Close.
func (s *Shmem) IsOwner() bool {
	return s.m.Owner()
}

// SetOwner flips the ownership flag and returns the previous value. It
// exists so a caller can hand final-teardown responsibility to exactly one
// process, possibly an opener rather than the creator. The package does not
// enforce single ownership across processes; that discipline is the
// caller's.
func (s *Shmem) SetOwner(owner bool) bool {
	return s.m.SetOwner(owner)
}

// OSID returns the region's unique identifier: the namespace name, or the
// backing file path in filesystem-backed mode.
func (s *Shmem) OSID() string {
	return s.m.ID()
}

// FlinkPath returns the configured reference file path, or "" when none.
func (s *Shmem) FlinkPath() string {
	return s.conf.flinkPath
}

// FsBackedPath returns the backing file path and true when the segment uses
// filesystem-backed mode.
func (s *Shmem) FsBackedPath() (string, bool) {
	if !s.m.FileBacked() {
		return "", false
	}
	return s.m.ID(), true
}

// Len returns the total mapped size in bytes.
func (s *Shmem) Len() int {
	return s.m.Len()
}

// Bytes returns the mapped region. Reads and writes go straight to the
// shared memory; the package provides no synchronization, so concurrent
// access from other processes or goroutines is the caller's problem.
func (s *Shmem) Bytes() []byte {
	return s.m.Bytes()
}

// Ptr returns the base address of the mapped region.
func (s *Shmem) Ptr() unsafe.Pointer {
	return s.m.Ptr()
}

// Close tears the handle down: the region is always unmapped, and when the
// handle is currently marked owner the backing store and the reference file
// are removed as well. Close never fails; teardown errors are logged and
// the cleanup continues. Calling Close more than once is a no-op.
func (s *Shmem) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(s, nil)
	if s.m.Owner() && s.conf.flinkPath != "" {
		removeFlink(s.conf.flinkPath)
	}
	s.inst.onClose(s.m)
	s.m.Release()
	unregisterSegment(s.m.ID())
}
