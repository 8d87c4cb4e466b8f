package main

import (
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// progressBar renders fetch progress on stderr. The tracker is created on
// the first update, once the universe size is known.
type progressBar struct {
	pw      progress.Writer
	once    sync.Once
	stop    sync.Once
	tracker *progress.Tracker
}

func newProgressBar(w io.Writer) *progressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	return &progressBar{pw: pw}
}

func (b *progressBar) Update(done, total int, _ string) {
	b.once.Do(func() {
		b.tracker = &progress.Tracker{Message: "Pulling fundamentals", Total: int64(total), Units: progress.UnitsDefault}
		b.pw.AppendTracker(b.tracker)
		go b.pw.Render()
	})
	b.tracker.SetValue(int64(done))
}

// Stop marks the tracker done and waits for the final frame.
func (b *progressBar) Stop() {
	b.stop.Do(func() {
		if b.tracker == nil {
			return
		}
		b.tracker.MarkAsDone()
		time.Sleep(150 * time.Millisecond)
		b.pw.Stop()
		for b.pw.IsRenderInProgress() {
			time.Sleep(10 * time.Millisecond)
		}
	})
}
