package shmem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/shmem/internal/logx"
)

// A reader may reach the reference file before the creator has finished
// writing it. Open retries the mapping a bounded number of times with a
// fixed delay before giving up; this is the only blocking behavior in the
// package.
const (
	flinkRetryAttempts = 5
	flinkRetryDelay    = 50 * time.Millisecond
)

// createFlink writes the resolved identifier into a reference file at path.
// Creation is exclusive unless overwrite is set, in which case an existing
// file is truncated in place. A file that could be created but not written
// is removed again so later openers never see a corrupt identifier.
func createFlink(path, id string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrLinkExists
		}
		return fmt.Errorf("%w: %w", ErrLinkCreateFailed, err)
	}
	_, werr := f.WriteString(id)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: %w", ErrLinkWriteFailed, werr)
	}
	logx.Debugf("created reference file %q with id %q", path, id)
	return nil
}

// readFlink returns the entire contents of the reference file as the
// identifier. The format is raw bytes, no terminator or framing.
func readFlink(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLinkOpenFailed, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logx.Warnf("closing reference file %q failed: %v", path, cerr)
		}
	}()
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(f); err != nil {
		return "", fmt.Errorf("%w: %w", ErrLinkReadFailed, err)
	}
	return buf.String(), nil
}

// removeFlink is best effort: a stale reference file is a leak, not a
// correctness hazard for handles that are already open.
func removeFlink(path string) {
	logx.Debugf("deleting reference file %q", path)
	if err := os.Remove(path); err != nil {
		logx.Warnf("removing reference file %q failed: %v", path, err)
	}
}

func pathExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
