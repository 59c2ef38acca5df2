package pipeline

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/constants"
	"github.com/baassets/pipeline/internal/fetch"
)

// downloadWorker is the taskpool.WorkerFunc for the download stage: apply
// the dynamic scaling heuristic, fetch the entry to raw_dir, and on
// success forward to the extract pool (when extraction runs concurrently)
// or record it for the batch extraction that runs after the download phase.
func (st *stageState) downloadWorker(ctx context.Context, item any) error {
	entry := item.(catalog.Entry)

	st.scaleForTask(entry.Size)

	diskPath := filepath.Join(st.opts.RawDir, filepath.FromSlash(entry.Path))

	f := fetch.New(st.client, http.MethodGet, entry.URL, st.opts.MaxRetries)
	ok, err := f.SaveFile(ctx, diskPath)
	if err != nil || !ok {
		st.opts.Logger.Warn().Str("path", entry.Path).Err(err).Msg("download failed")
		st.failed.Add(entry)
		return err
	}

	st.downloaded.Add(1)
	st.opts.Sink.Add(1)

	if extractable(entry) {
		if st.extractPool != nil {
			st.extractPool.Push(entry)
		} else {
			st.succeeded.Add(entry)
		}
	}
	return nil
}

// scaleForTask implements the download stage's worker-scaling heuristic:
// when the next task's size is small, request additional workers up to
// base_threads + 8^7/(size+epsilon), clamped by IncreaseWorker's own cap
// at max_workers.
func (st *stageState) scaleForTask(size uint64) {
	if size > constants.SmallTaskThreshold {
		return
	}

	target := st.opts.BaseThreads + int(constants.ScaleNumerator/(float64(size)+constants.ScaleEpsilon))
	for st.downloadPool.LiveWorkers() < target {
		before := st.downloadPool.LiveWorkers()
		st.downloadPool.IncreaseWorker()
		if st.downloadPool.LiveWorkers() == before {
			// hit max_workers; IncreaseWorker is a no-op past the cap.
			return
		}
	}
}

func extractable(e catalog.Entry) bool {
	switch e.ResourceType {
	case catalog.ResourceBundle, catalog.ResourceMedia, catalog.ResourceTable:
		return true
	default:
		return false
	}
}
