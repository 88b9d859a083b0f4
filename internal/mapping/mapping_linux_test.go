//go:build linux

package mapping

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOpenRelease(t *testing.T) {
	id := RandomID()
	owner, err := Create(id, 4096, 0o600)
	require.NoError(t, err)
	require.Equal(t, 4096, owner.Len())
	require.True(t, owner.Owner())
	require.NotNil(t, owner.Ptr())

	copy(owner.Bytes(), []byte{0xde, 0xad, 0xbe, 0xef})

	other, err := Open(id)
	require.NoError(t, err)
	assert.False(t, other.Owner())
	assert.Equal(t, 4096, other.Len())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, other.Bytes()[:4])

	// Non-owner release leaves the region in place.
	other.Release()
	again, err := Open(id)
	require.NoError(t, err)
	again.Release()

	// Owner release destroys the namespace entry.
	owner.Release()
	_, err = Open(id)
	assert.ErrorIs(t, err, ErrMapOpenFailed)
}

func TestCreateCollision(t *testing.T) {
	id := RandomID()
	first, err := Create(id, 1024, 0o600)
	require.NoError(t, err)
	defer first.Release()

	second, err := Create(id, 1024, 0o600)
	assert.ErrorIs(t, err, ErrMappingIDExists)
	assert.Nil(t, second)

	// The first mapping stays valid and mapped.
	first.Bytes()[0] = 0x42
	assert.Equal(t, byte(0x42), first.Bytes()[0])
}

func TestCreateZeroSize(t *testing.T) {
	id := RandomID()
	_, err := Create(id, 0, 0o600)
	assert.ErrorIs(t, err, ErrMapSizeZero)
	_, serr := os.Stat(filepath.Join(devShmDir, id))
	assert.True(t, os.IsNotExist(serr), "zero-size create must leave no namespace entry")
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(RandomID())
	assert.ErrorIs(t, err, ErrMapOpenFailed)
}

func TestReleaseIdempotent(t *testing.T) {
	m, err := Create(RandomID(), 512, 0o600)
	require.NoError(t, err)
	m.Release()
	m.Release()
}

func TestFilePathPure(t *testing.T) {
	p := FilePath("/tmp/base", "abc")
	assert.Equal(t, filepath.Join("/tmp/base", "shmem_abc"), p)
	assert.Equal(t, p, FilePath("/tmp/base", "abc"))
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err), "path derivation must not touch the filesystem")
}

func TestFileStrategy(t *testing.T) {
	dir := t.TempDir()
	path := FilePath(dir, RandomToken())

	owner, err := CreateFile(path, 8192, 0o600)
	require.NoError(t, err)
	assert.Equal(t, path, owner.ID())
	assert.True(t, owner.FileBacked())
	assert.Equal(t, 8192, owner.Len())

	copy(owner.Bytes(), "file-backed")

	other, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8192, other.Len())
	assert.Equal(t, "file-backed", string(other.Bytes()[:11]))
	other.Release()

	// A second exclusive create on the same path collides.
	_, err = CreateFile(path, 8192, 0o600)
	assert.ErrorIs(t, err, ErrMappingIDExists)

	owner.Release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "owner release must remove the backing file")
}

func TestFileStrategyTrueSize(t *testing.T) {
	dir := t.TempDir()
	path := FilePath(dir, RandomToken())

	owner, err := CreateFile(path, 3000, 0o600)
	require.NoError(t, err)
	defer owner.Release()

	// Open discovers the true size, whatever the opener expected.
	other, err := OpenFile(path)
	require.NoError(t, err)
	defer other.Release()
	assert.Equal(t, 3000, other.Len())
}

func TestCanCreateAt(t *testing.T) {
	// Unresolvable paths always pass, the syscall decides.
	assert.True(t, CanCreateAt(math.MaxUint64, "not_a_real_dir"))

	stat, err := disk.Usage(devShmDir)
	if err != nil {
		t.Skipf("no %s on this machine: %v", devShmDir, err)
	}
	assert.True(t, CanCreateAt(stat.Free, devShmDir))
	assert.False(t, CanCreateAt(stat.Free+1, devShmDir))
}

func TestRandomTokens(t *testing.T) {
	assert.NotEqual(t, RandomToken(), RandomToken())
	assert.Contains(t, RandomID(), "shmem_")
}
