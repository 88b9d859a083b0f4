//go:build linux

package mapping

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/srediag/shmem/internal/logx"
)

// Region names of the namespace strategy materialize under /dev/shm, the
// same place shm_open puts them.
const devShmDir = "/dev/shm"

// Create reserves a new region in the kernel shared-memory namespace, sizes
// it and maps it read/write. A name collision fails with ErrMappingIDExists,
// it never reuses the existing region.
func Create(id string, size int, mode os.FileMode) (*MapData, error) {
	if size <= 0 {
		return nil, ErrMapSizeZero
	}
	if !CanCreateAt(uint64(size), devShmDir) {
		return nil, osFail(ErrMapCreateFailed, "check free space", unix.ENOSPC)
	}
	path := filepath.Join(devShmDir, id)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, uint32(mode.Perm()))
	if err != nil {
		if err == unix.EEXIST {
			return nil, ErrMappingIDExists
		}
		return nil, osFail(ErrMapCreateFailed, "open "+path, err)
	}
	logx.Tracef("open(%s, O_CREAT|O_EXCL|O_RDWR) == %d", path, fd)
	return mapFd(fd, id, path, size, true, false)
}

// Open maps an existing namespace region read/write. The mapped size is the
// region's true size, not a caller hint.
func Open(id string) (*MapData, error) {
	path := filepath.Join(devShmDir, id)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, osFail(ErrMapOpenFailed, "open "+path, err)
	}
	logx.Tracef("open(%s, O_RDWR) == %d", path, fd)
	return openFd(fd, id, path, false)
}

// CreateFile reserves a new backing file at path for filesystem-backed mode,
// sizes it and maps it read/write. The file path doubles as the region
// identifier.
func CreateFile(path string, size int, mode os.FileMode) (*MapData, error) {
	if size <= 0 {
		return nil, ErrMapSizeZero
	}
	if !CanCreateAt(uint64(size), filepath.Dir(path)) {
		return nil, osFail(ErrMapCreateFailed, "check free space", unix.ENOSPC)
	}
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR|unix.O_CLOEXEC, uint32(mode.Perm()))
	if err != nil {
		if err == unix.EEXIST {
			return nil, ErrMappingIDExists
		}
		return nil, osFail(ErrMapCreateFailed, "open "+path, err)
	}
	logx.Tracef("open(%s, O_CREAT|O_EXCL|O_RDWR) == %d", path, fd)
	return mapFd(fd, path, path, size, true, true)
}

// OpenFile maps an existing filesystem-backed region read/write.
func OpenFile(path string) (*MapData, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, osFail(ErrMapOpenFailed, "open "+path, err)
	}
	logx.Tracef("open(%s, O_RDWR) == %d", path, fd)
	return openFd(fd, path, path, true)
}

// mapFd sizes a freshly created descriptor and maps it. On failure the
// half-created region is removed so create leaves no OS-visible side effect.
func mapFd(fd int, id, path string, size int, owner, fileBacked bool) (*MapData, error) {
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, osFail(ErrUnknownOS, "ftruncate", err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, osFail(ErrMapCreateFailed, "mmap", err)
	}
	logx.Debugf("created shared memory mapping %q (%d bytes)", id, size)
	return &MapData{
		id:         id,
		mem:        mem,
		size:       size,
		fd:         fd,
		owner:      owner,
		fileBacked: fileBacked,
	}, nil
}

// openFd discovers the true size of an existing region and maps it.
func openFd(fd int, id, path string, fileBacked bool) (*MapData, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, osFail(ErrMapOpenFailed, "fstat "+path, err)
	}
	size := int(st.Size)
	if size <= 0 {
		_ = unix.Close(fd)
		return nil, ErrMapSizeZero
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, osFail(ErrMapOpenFailed, "mmap", err)
	}
	logx.Debugf("opened shared memory mapping %q (%d bytes)", id, size)
	return &MapData{
		id:         id,
		mem:        mem,
		size:       size,
		fd:         fd,
		fileBacked: fileBacked,
	}, nil
}

// release order follows teardown of the region: munmap, then unlink when
// owner, then close. Each step runs even if the previous one failed.
func (m *MapData) release() {
	if m.mem != nil {
		logx.Tracef("munmap(%p, %d)", m.Ptr(), m.size)
		if err := unix.Munmap(m.mem); err != nil {
			logx.Warnf("munmap of %q failed: %v", m.id, err)
		}
		m.mem = nil
	}
	if m.fd < 0 {
		return
	}
	if m.owner {
		path := m.id
		if !m.fileBacked {
			path = filepath.Join(devShmDir, m.id)
		}
		logx.Tracef("unlink(%s)", path)
		if err := unix.Unlink(path); err != nil {
			logx.Warnf("removing backing store of %q failed: %v", m.id, err)
		}
	}
	logx.Tracef("close(%d)", m.fd)
	if err := unix.Close(m.fd); err != nil {
		logx.Warnf("closing descriptor of %q failed: %v", m.id, err)
	}
	m.fd = -1
}
