package cliapp

import (
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/baassets/pipeline/internal/progress"
)

// barRenderer polls a progress.Sink and drives a single mpb bar for it:
// the same display-only polling loop a per-file download UI would use,
// collapsed to the one process-wide counter this pipeline exposes.
type barRenderer struct {
	sink *progress.Sink
	p    *mpb.Progress
	bar  *mpb.Bar
	stop chan struct{}
	done chan struct{}
}

func newBarRenderer(sink *progress.Sink) *barRenderer {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(60),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	bar := p.AddBar(0,
		mpb.PrependDecorators(decor.Name("assets")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)

	return &barRenderer{
		sink: sink,
		p:    p,
		bar:  bar,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start polls the sink every 200ms and pushes its state into the bar until
// Stop is called.
func (r *barRenderer) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				r.refresh()
				return
			case <-ticker.C:
				r.refresh()
			}
		}
	}()
}

func (r *barRenderer) refresh() {
	r.bar.SetTotal(r.sink.Total(), false)
	r.bar.SetCurrent(r.sink.Done())
}

// Stop halts the polling loop and marks the bar complete. Safe to call
// more than once.
func (r *barRenderer) Stop() {
	select {
	case <-r.stop:
		return
	default:
		close(r.stop)
	}
	<-r.done
	r.bar.SetTotal(r.sink.Total(), true)
	r.p.Wait()
}
