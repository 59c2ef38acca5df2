package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/baassets/pipeline/internal/catalog"
)

// extractWorker is the taskpool.WorkerFunc for the concurrent extract
// stage (only started when DownloadingExtract is enabled). Bundle entries
// are subject to the global single-writer constraint: if another worker
// is already extracting a bundle, this one re-queues its item instead of
// waiting.
func (st *stageState) extractWorker(ctx context.Context, item any) error {
	entry := item.(catalog.Entry)

	if entry.ResourceType == catalog.ResourceBundle {
		if !st.bundleBusy.CompareAndSwap(false, true) {
			st.extractPool.Push(entry)
			return nil
		}
		defer st.bundleBusy.Store(false)
	}

	return st.extractEntry(ctx, entry)
}

// batchExtract runs a single-shot extraction pass over every successfully
// downloaded, extractable entry from this round, used when
// DownloadingExtract is disabled and extraction instead runs as one batch
// after the download phase completes. Bundles are processed sequentially
// (the single-writer constraint applies here too, just without the
// requeue dance since nothing else is running); media and table entries
// run concurrently, since neither has that constraint.
func batchExtract(ctx context.Context, st *stageState) {
	entries := st.succeeded.Snapshot()

	var bundles, rest []catalog.Entry
	for _, e := range entries {
		if e.ResourceType == catalog.ResourceBundle {
			bundles = append(bundles, e)
		} else {
			rest = append(rest, e)
		}
	}

	for _, e := range bundles {
		if ctx.Err() != nil {
			return
		}
		if err := st.extractEntry(ctx, e); err != nil {
			st.opts.Logger.Warn().Str("path", e.Path).Err(err).Msg("batch extract failed")
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, downloadExtractWorkers(st.opts.BaseThreads))
	for _, e := range rest {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(entry catalog.Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := st.extractEntry(ctx, entry); err != nil {
				st.opts.Logger.Warn().Str("path", entry.Path).Err(err).Msg("batch extract failed")
			}
		}(e)
	}
	wg.Wait()
}

// extractEntry dispatches to the right extractor by resource type.
func (st *stageState) extractEntry(ctx context.Context, entry catalog.Entry) error {
	rawPath := filepath.Join(st.opts.RawDir, filepath.FromSlash(entry.Path))

	switch entry.ResourceType {
	case catalog.ResourceBundle:
		if st.opts.ExtractReader == nil {
			return nil
		}
		destDir := filepath.Join(st.opts.ExtractDir, "Bundle")
		return st.opts.ExtractReader.ExtractBundle(ctx, rawPath, destDir)
	case catalog.ResourceMedia:
		return extractMediaZip(rawPath, filepath.Join(st.opts.ExtractDir, "Media"), st.opts.Registry)
	case catalog.ResourceTable:
		return extractTable(rawPath, filepath.Join(st.opts.ExtractDir, "Table"), entry, st.opts.Registry)
	default:
		return nil
	}
}
