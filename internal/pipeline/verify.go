package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/taskpool"
)

// verifyWorker returns the taskpool.WorkerFunc for the verify stage: stat
// the on-disk path, compare size, and on a size match compare the
// checksum. Anything short of an exact match is forwarded to
// downloadPool. selfPool is a pointer to the verify pool's own *Manager,
// filled in by the caller right after construction (the worker needs to
// read its own pool's Pending() count, which doesn't exist until the pool
// itself is built) — the closure dereferences it lazily at call time, by
// which point it's always set.
//
// The returned closure also keeps the progress sink's total reassigned to
// verifyPool.Pending()+downloadPool.Pending(), the dynamic total the
// verify stage requires as entries migrate from verification to download.
func (st *stageState) verifyWorker(downloadPool *taskpool.Manager, selfPool **taskpool.Manager) taskpool.WorkerFunc {
	return func(ctx context.Context, item any) error {
		entry := item.(catalog.Entry)

		st.opts.Sink.SetTotal((*selfPool).Pending() + downloadPool.Pending())

		diskPath := filepath.Join(st.opts.RawDir, filepath.FromSlash(entry.Path))

		ok, err := verifyEntry(diskPath, entry)
		if err != nil || !ok {
			downloadPool.Push(entry)
			return nil
		}

		st.skipped.Add(1)
		st.opts.Sink.Add(1)
		return nil
	}
}

// verifyEntry reports whether the file at diskPath already matches entry:
// present, correct size, and (if the size matches) a matching checksum.
func verifyEntry(diskPath string, entry catalog.Entry) (bool, error) {
	info, err := os.Stat(diskPath)
	if err != nil {
		return false, nil
	}
	if uint64(info.Size()) != entry.Size {
		return false, nil
	}

	sum, err := checksumFile(diskPath, entry.CheckType)
	if err != nil {
		return false, err
	}
	return sum == entry.Checksum, nil
}

func checksumFile(path string, checkType catalog.CheckType) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch checkType {
	case catalog.CheckCRC32:
		h := crc32.NewIEEE()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", h.Sum32()), nil
	case catalog.CheckMD5:
		h := md5.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	default:
		return "", fmt.Errorf("pipeline: unknown checksum type %q", checkType)
	}
}
