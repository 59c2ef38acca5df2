// Package progress provides the process-wide progress sink the
// verify/download/extract pipeline reports through, plus a Reporter
// abstraction for single large one-shot downloads such as a region
// catalog fetch.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface for reporting progress of a single bounded
// operation (e.g. one file transfer).
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements Reporter using a terminal progress bar.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a Reporter that does nothing (used in tests and
// non-interactive runs).
type NoOpProgress struct{}

func NewNoOpProgress() *NoOpProgress { return &NoOpProgress{} }

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                                {}
func (p *NoOpProgress) Error(err error)                        {}
func (p *NoOpProgress) SetDescription(desc string)             {}

// ProgressReader wraps an io.Reader to report progress as bytes are read.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: reader, reporter: reporter}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// Sink is the single process-wide progress counter and current-item-name
// string the pipeline reports through. Numeric increments are atomic; the
// name is last-writer-wins and display-only, so neither field needs a
// lock.
type Sink struct {
	done    int64
	total   int64
	current atomic.Value // string
}

// NewSink creates an empty progress sink.
func NewSink() *Sink {
	s := &Sink{}
	s.current.Store("")
	return s
}

// SetTotal reassigns the total unit count. The verify stage reassigns this
// dynamically as entries move from verification into the download queue.
func (s *Sink) SetTotal(total int64) {
	atomic.StoreInt64(&s.total, total)
}

// Total returns the current total.
func (s *Sink) Total() int64 {
	return atomic.LoadInt64(&s.total)
}

// Add increments the completed counter by delta (delta may be negative to
// reverse a credit issued for a streamed write that later failed). The
// counter is never allowed to go below zero.
func (s *Sink) Add(delta int64) {
	for {
		cur := atomic.LoadInt64(&s.done)
		next := cur + delta
		if next < 0 {
			next = 0
		}
		if atomic.CompareAndSwapInt64(&s.done, cur, next) {
			return
		}
	}
}

// Done returns the current completed count.
func (s *Sink) Done() int64 {
	return atomic.LoadInt64(&s.done)
}

// SetCurrentItem records the display name of the item currently in flight.
func (s *Sink) SetCurrentItem(name string) {
	s.current.Store(name)
}

// CurrentItem returns the last recorded in-flight item name.
func (s *Sink) CurrentItem() string {
	v, _ := s.current.Load().(string)
	return v
}
