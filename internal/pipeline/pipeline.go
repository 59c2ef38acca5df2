// Package pipeline wires the task pools together into the
// Verify -> Download -> Extract state machine: verify what's already on
// disk, download what's missing or stale, and optionally extract what
// downloaded, retrying failures as a fresh pass until the failed set is
// empty or the user cancels.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/fetch"
	"github.com/baassets/pipeline/internal/progress"
	"github.com/baassets/pipeline/internal/schema"
	"github.com/baassets/pipeline/internal/taskpool"
)

// Options carries everything a Run needs that isn't the catalog itself.
type Options struct {
	RawDir             string
	ExtractDir         string
	Proxy              string
	MaxRetries         int
	BaseThreads        int
	MaxWorkers         int
	DownloadingExtract bool
	ExtractReader      UnityAssetReader
	Registry           *schema.Registry
	Sink               *progress.Sink
	Logger             zerolog.Logger
}

// UnityAssetReader is the external collaborator the bundle extraction
// path uses to walk a downloaded bundle's asset tree, the same boundary
// shape as region.UnityAssetReader on the acquisition side. With a nil
// reader, bundle entries are not extracted: extractEntry returns nil for
// them without writing anything.
type UnityAssetReader interface {
	ExtractBundle(ctx context.Context, rawPath, extractDestDir string) error
}

// Result is what the whole Run produced, across every retry round.
type Result struct {
	Downloaded  int
	Skipped     int
	Failed      catalog.Catalog
	RetryRounds int
}

// Run drives Verify -> Download -> (optional) Extract to completion,
// retrying the failed subset as a fresh pass until it's empty or ctx is
// cancelled.
func Run(ctx context.Context, cat catalog.Catalog, opts Options) (Result, error) {
	client, err := fetch.NewClient(opts.Proxy)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: build http client: %w", err)
	}

	var (
		totalDownloaded int
		totalSkipped    int
		round           int
	)

	current := cat
	for {
		round++
		opts.Logger.Info().Int("round", round).Int("entries", current.Len()).Msg("pipeline pass starting")

		rr, err := runOnce(ctx, current, opts, client)
		totalDownloaded += rr.downloaded
		totalSkipped += rr.skipped

		if err != nil {
			return Result{
				Downloaded:  totalDownloaded,
				Skipped:     totalSkipped,
				Failed:      rr.failed,
				RetryRounds: round,
			}, err
		}
		if rr.failed.Len() == 0 {
			return Result{
				Downloaded:  totalDownloaded,
				Skipped:     totalSkipped,
				Failed:      catalog.New(),
				RetryRounds: round,
			}, nil
		}
		if ctx.Err() != nil {
			return Result{
				Downloaded:  totalDownloaded,
				Skipped:     totalSkipped,
				Failed:      rr.failed,
				RetryRounds: round,
			}, ctx.Err()
		}

		opts.Logger.Warn().Int("failed", rr.failed.Len()).Msg("retrying failed entries")
		current = rr.failed
	}
}

type roundOutcome struct {
	downloaded int
	skipped    int
	failed     catalog.Catalog
}

// runOnce executes one Verify -> Download -> Extract pass over cat and
// returns when every stage has quiesced.
func runOnce(ctx context.Context, cat catalog.Catalog, opts Options, client *http.Client) (roundOutcome, error) {
	cat.SortedBySizeDesc()

	st := &stageState{
		opts:      opts,
		client:    client,
		failed:    &failedCatalog{},
		succeeded: &entryList{},
	}

	extractable := opts.DownloadingExtract

	downloadPool := taskpool.NewManager(opts.BaseThreads, opts.MaxWorkers, st.downloadWorker)

	var extractPool *taskpool.Manager
	if extractable {
		extractPool = taskpool.NewManager(downloadExtractWorkers(opts.BaseThreads), opts.MaxWorkers, st.extractWorker)
		st.extractPool = extractPool
	}

	var verifyPool *taskpool.Manager
	verifyPool = taskpool.NewManager(opts.BaseThreads, opts.MaxWorkers, st.verifyWorker(downloadPool, &verifyPool))
	downloadPool.SetRelation("shut", verifyPool)
	if extractPool != nil {
		extractPool.SetRelation("shut", downloadPool)
	}

	st.downloadPool = downloadPool

	total := int64(cat.Len())
	opts.Sink.SetTotal(total)

	items := make([]any, 0, cat.Len())
	for _, e := range cat.Entries() {
		items = append(items, e)
	}
	verifyPool.ImportTasks(items)

	verifyPool.RunWithoutBlock(ctx)
	downloadPool.RunWithoutBlock(ctx)
	if extractPool != nil {
		extractPool.RunWithoutBlock(ctx)
	}

	verifyPool.Wait()
	downloadPool.Wait()
	if extractPool != nil {
		extractPool.Wait()
	}

	if !extractable {
		batchExtract(ctx, st)
	}

	return roundOutcome{
		downloaded: int(st.downloaded.Load()),
		skipped:    int(st.skipped.Load()),
		failed:     st.failed.Snapshot(),
	}, ctx.Err()
}

// stageState is the shared state every worker in one pipeline round reads
// and writes: the http client, the pools workers forward items into, the
// mutex-guarded failed list, counters, and the bundle single-writer flag.
type stageState struct {
	opts   Options
	client *http.Client

	downloadPool *taskpool.Manager
	extractPool  *taskpool.Manager

	failed     *failedCatalog
	succeeded  *entryList // successfully downloaded, extractable entries
	downloaded atomic.Int64
	skipped    atomic.Int64

	bundleBusy atomic.Bool
}

// entryList accumulates entries under a mutex, the same shape as
// failedCatalog but reused for the downloaded-successfully set that batch
// extraction walks when DownloadingExtract is disabled.
type entryList struct {
	mu      sync.Mutex
	entries []catalog.Entry
}

func (l *entryList) Add(e catalog.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *entryList) Snapshot() []catalog.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]catalog.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// failedCatalog accumulates failed entries under a mutex.
type failedCatalog struct {
	mu      sync.Mutex
	entries []catalog.Entry
}

func (f *failedCatalog) Add(e catalog.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *failedCatalog) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *failedCatalog) Snapshot() catalog.Catalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := catalog.New()
	for _, e := range f.entries {
		out.AddEntry(e)
	}
	return out
}

// downloadExtractWorkers sizes the extract pool modestly: extraction is
// CPU/disk bound, not network bound, so it doesn't need the download
// stage's aggressive fan-out.
func downloadExtractWorkers(baseThreads int) int {
	if baseThreads < 1 {
		return 1
	}
	return baseThreads
}
