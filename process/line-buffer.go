package process

import (
	"sync"
	"time"
)

// Stream identifies which output a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Line is one line of subprocess output.
type Line struct {
	Stream Stream
	Text   string
	Time   time.Time
}

// Sink receives batches of output lines.
// Calls are never concurrent and lines of one stream arrive in the order they were written.
type Sink func(lines []Line)

const maxStderrLines = 1000

// lineBuffer collects lines from the reader goroutines and flushes them to a Sink on a ticker.
type lineBuffer struct {
	mu         sync.Mutex
	pending    []Line
	stderr     []string
	sink       Sink
	interval   time.Duration
	ticker     *time.Ticker
	tickerDone chan struct{}
	flusherWg  sync.WaitGroup
}

func newLineBuffer(sink Sink, interval time.Duration) *lineBuffer {
	return &lineBuffer{sink: sink, interval: interval, tickerDone: make(chan struct{})}
}

func (b *lineBuffer) add(s Stream, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, Line{Stream: s, Text: text, Time: time.Now()})
	if s == Stderr {
		b.stderr = append(b.stderr, text)
		if len(b.stderr) > maxStderrLines { // if we are holding too much...
			b.stderr = b.stderr[len(b.stderr)-maxStderrLines:]
		}
	}
}

// flush hands everything pending to the sink outside the lock.
func (b *lineBuffer) flush() {
	b.mu.Lock()
	lines := b.pending
	b.pending = nil
	b.mu.Unlock()
	if len(lines) > 0 && b.sink != nil {
		b.sink(lines)
	}
}

// startFlushing flushes every interval until stopFlushing is called.
func (b *lineBuffer) startFlushing() {
	b.ticker = time.NewTicker(b.interval)
	b.flusherWg.Add(1)
	go func() {
		defer b.flusherWg.Done()
		for {
			select {
			case <-b.ticker.C:
				b.flush()
			case <-b.tickerDone:
				return
			}
		}
	}()
}

// stopFlushing stops the ticker goroutine and then flushes whatever is left.
func (b *lineBuffer) stopFlushing() {
	b.ticker.Stop()
	close(b.tickerDone)
	b.flusherWg.Wait()
	b.flush()
}

func (b *lineBuffer) stderrLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	retval := make([]string, len(b.stderr))
	copy(retval, b.stderr)
	return retval
}
