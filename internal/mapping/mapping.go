// Package mapping implements the OS backing-store drivers for shared memory
// segments. Two strategies satisfy the same create/open/release contract: the
// kernel shared-memory namespace (/dev/shm entries on Linux, named file
// mappings on Windows) and filesystem-backed mode, which uses ordinary files
// in a caller-chosen directory.
package mapping

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync/atomic"
	"unsafe"
)

// MapData is the live OS resource behind one mapped segment: the open
// descriptor, the mapped bytes and the ownership flag. It is the single
// source of truth for ownership; the public handle delegates to it so that
// region release and reference-file cleanup are decided consistently.
type MapData struct {
	id         string
	mem        []byte
	size       int
	fd         int
	handle     uintptr // windows file-mapping handle
	owner      bool
	fileBacked bool
	released   atomic.Bool
}

// ID returns the unique identifier of the backing region. For the namespace
// strategy this is the region name, for filesystem-backed mode the absolute
// file path.
func (m *MapData) ID() string {
	return m.id
}

// Len returns the mapped size in bytes.
func (m *MapData) Len() int {
	return m.size
}

// Bytes returns the mapped region. The slice is valid until Release.
func (m *MapData) Bytes() []byte {
	return m.mem
}

// Ptr returns the base address of the mapped region.
func (m *MapData) Ptr() unsafe.Pointer {
	if len(m.mem) == 0 {
		return nil
	}
	return unsafe.Pointer(&m.mem[0])
}

// FileBacked reports whether the region uses the filesystem-backed strategy.
func (m *MapData) FileBacked() bool {
	return m.fileBacked
}

// Owner reports whether this mapping is responsible for destroying the
// backing region on release.
func (m *MapData) Owner() bool {
	return m.owner
}

// SetOwner flips the ownership flag and returns the previous value.
func (m *MapData) SetOwner(owner bool) bool {
	prev := m.owner
	m.owner = owner
	return prev
}

// Release unmaps the region, destroys the backing store when owner, and
// closes the descriptor. It runs at most once; failures are logged, never
// propagated, because release typically runs during unconditional cleanup.
func (m *MapData) Release() {
	if m == nil || !m.released.CompareAndSwap(false, true) {
		return
	}
	m.release()
}

// RandomToken returns a fresh hex token from a non-cryptographic source.
// A new token is drawn per creation attempt when no identifier was given.
func RandomToken() string {
	return fmt.Sprintf("%X", rand.Uint64())
}

// RandomID returns a random region identifier for the namespace strategy.
func RandomID() string {
	return "shmem_" + RandomToken()
}

// FilePath derives the backing file path for filesystem-backed mode from a
// base directory and an identifier. It is pure so create and open resolve
// the same path.
func FilePath(baseDir, id string) string {
	return filepath.Join(baseDir, "shmem_"+id)
}

func osFail(sentinel error, op string, err error) error {
	return fmt.Errorf("%w: %s: %w", sentinel, op, err)
}
