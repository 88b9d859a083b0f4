package shmem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFsBackedCreateOpen(t *testing.T) {
	dir := t.TempDir()
	creator, err := NewConf().OSID("fsseg").Size(4096).FsBackedDir(dir).Create()
	require.NoError(t, err)

	path, fsBacked := creator.FsBackedPath()
	require.True(t, fsBacked)
	assert.Equal(t, filepath.Join(dir, "shmem_fsseg"), path)
	assert.Equal(t, path, creator.OSID())
	require.True(t, pathExists(path))

	copy(creator.Bytes(), "tmpfs")

	opener, err := NewConf().OSID("fsseg").FsBackedDir(dir).Open()
	require.NoError(t, err)
	assert.Equal(t, 4096, opener.Len())
	assert.Equal(t, "tmpfs", string(opener.Bytes()[:5]))
	opener.Close()

	// The backing file is still there.
	require.True(t, pathExists(path))

	creator.Close()
	_, serr := os.Stat(path)
	assert.True(t, os.IsNotExist(serr), "owner close must remove the backing file")
}

func TestFsBackedRandomID(t *testing.T) {
	dir := t.TempDir()
	seg, err := NewConf().Size(1024).FsBackedDir(dir).Create()
	require.NoError(t, err)
	defer seg.Close()

	path, fsBacked := seg.FsBackedPath()
	require.True(t, fsBacked)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, pathExists(path))
}

func TestFsBackedCollision(t *testing.T) {
	dir := t.TempDir()
	first, err := NewConf().OSID("dup").Size(1024).FsBackedDir(dir).Create()
	require.NoError(t, err)
	defer first.Close()

	_, err = NewConf().OSID("dup").Size(1024).FsBackedDir(dir).Create()
	assert.ErrorIs(t, err, ErrMappingIDExists)
}

func TestFsBackedFlink(t *testing.T) {
	dir := t.TempDir()
	flink := filepath.Join(dir, "fs.link")
	creator, err := NewConf().Size(2048).FsBackedDir(dir).Flink(flink).Create()
	require.NoError(t, err)
	defer creator.Close()

	// The flink carries the full backing file path.
	content, err := os.ReadFile(flink)
	require.NoError(t, err)
	path, _ := creator.FsBackedPath()
	assert.Equal(t, path, string(content))

	opener, err := NewConf().FsBackedDir(dir).Flink(flink).Open()
	require.NoError(t, err)
	defer opener.Close()
	assert.Equal(t, creator.OSID(), opener.OSID())
}
