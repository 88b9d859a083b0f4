//go:build windows

package mapping

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/srediag/shmem/internal/logx"
)

// Create reserves a new pagefile-backed named mapping and maps a read/write
// view of it. Windows opens the existing object when the name is taken, so
// collisions are detected through ERROR_ALREADY_EXISTS and reported as
// ErrMappingIDExists.
func Create(id string, size int, _ os.FileMode) (*MapData, error) {
	if size <= 0 {
		return nil, ErrMapSizeZero
	}
	name, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return nil, osFail(ErrMapCreateFailed, "encode name", err)
	}
	h, err := windows.CreateFileMapping(
		windows.InvalidHandle, nil, windows.PAGE_READWRITE,
		uint32(uint64(size)>>32), uint32(size), name)
	if err == windows.ERROR_ALREADY_EXISTS {
		_ = windows.CloseHandle(h)
		return nil, ErrMappingIDExists
	}
	if err != nil {
		return nil, osFail(ErrMapCreateFailed, "CreateFileMapping", err)
	}
	mem, err := mapView(h, size)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, osFail(ErrMapCreateFailed, "MapViewOfFile", err)
	}
	logx.Debugf("created shared memory mapping %q (%d bytes)", id, size)
	return &MapData{
		id:     id,
		mem:    mem,
		size:   size,
		fd:     -1,
		handle: uintptr(h),
		owner:  true,
	}, nil
}

// Open maps a view of an existing named mapping. The view size is the
// mapping's true size, discovered through VirtualQuery.
func Open(id string) (*MapData, error) {
	name, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return nil, osFail(ErrMapOpenFailed, "encode name", err)
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, false, name)
	if err != nil {
		return nil, osFail(ErrMapOpenFailed, "OpenFileMapping", err)
	}
	mem, err := mapView(h, 0)
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, osFail(ErrMapOpenFailed, "MapViewOfFile", err)
	}
	logx.Debugf("opened shared memory mapping %q (%d bytes)", id, len(mem))
	return &MapData{
		id:     id,
		mem:    mem,
		size:   len(mem),
		fd:     -1,
		handle: uintptr(h),
	}, nil
}

// CreateFile is unavailable on Windows; filesystem-backed mode is a unix
// strategy.
func CreateFile(string, int, os.FileMode) (*MapData, error) {
	return nil, ErrFsBackedDisabled
}

// OpenFile is unavailable on Windows.
func OpenFile(string) (*MapData, error) {
	return nil, ErrFsBackedDisabled
}

// mapView maps size bytes of the object (the whole object when size is 0)
// and returns the view as a byte slice sized to the mapped region.
func mapView(h windows.Handle, size int) ([]byte, error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}
	if size == 0 {
		var info windows.MemoryBasicInformation
		if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
			_ = windows.UnmapViewOfFile(addr)
			return nil, err
		}
		size = int(info.RegionSize)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// release order mirrors the unix driver: unmap the view, then drop the
// mapping handle. The object itself disappears with its last handle, so
// owner has no extra work here.
func (m *MapData) release() {
	if m.mem != nil {
		if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.mem[0]))); err != nil {
			logx.Warnf("UnmapViewOfFile of %q failed: %v", m.id, err)
		}
		m.mem = nil
	}
	if m.handle != 0 {
		if err := windows.CloseHandle(windows.Handle(m.handle)); err != nil {
			logx.Warnf("CloseHandle of %q failed: %v", m.id, err)
		}
		m.handle = 0
	}
}
