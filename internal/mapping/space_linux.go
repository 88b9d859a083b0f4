//go:build linux

package mapping

import (
	"github.com/shirou/gopsutil/v3/disk"
)

// CanCreateAt reports whether the filesystem holding dir has at least size
// bytes free. The guard is advisory: when usage cannot be determined the
// create proceeds and the syscall decides.
func CanCreateAt(size uint64, dir string) bool {
	usage, err := disk.Usage(dir)
	if err != nil {
		return true
	}
	return size <= usage.Free
}
