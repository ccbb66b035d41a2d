package logging

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

const (
	// defaultMaxBufferedEntries is the number of entries held before the buffer
	// is flushed downstream regardless of the flush interval.
	defaultMaxBufferedEntries = 64
	// defaultFlushInterval is how often buffered entries are flushed downstream.
	defaultFlushInterval = time.Second
)

// LogSequencer serializes and allocates sequence and line nos to log entries
// before writing them to an underlying stream. Entries are buffered and
// flushed downstream on a clock tick or when the buffer fills.
type LogSequencer struct {
	mu            sync.Mutex
	clk           clock.Clock
	log           logger.Log
	closePipeline closeRequester
	next          LogWriter
	ticker        *clock.Ticker
	tickerDoneC   chan struct{}
	state         struct {
		nextSeqNo  int
		nextLineNo int
		buffer     []*models.LogEntry
		closed     bool
	}
}

func NewLogSequencer(
	clk clock.Clock,
	logFactory logger.LogFactory,
	closePipeline closeRequester,
	next LogWriter,
) *LogSequencer {
	w := &LogSequencer{
		clk:           clk,
		log:           logFactory("LogSequencer"),
		closePipeline: closePipeline,
		next:          next,
		tickerDoneC:   make(chan struct{}),
	}
	w.state.nextSeqNo = 1
	w.state.nextLineNo = 1
	return w
}

// Start begins the background flush loop. Must be called before Write.
func (l *LogSequencer) Start() {
	l.ticker = l.clk.Ticker(defaultFlushInterval)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				l.flushBuffer()
			case <-l.tickerDoneC:
				return
			}
		}
	}()
}

// Write a new entry to the stream. The entry will be allocated a seq no and line no (if appropriate).
func (l *LogSequencer) Write(entry *models.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.closed {
		l.log.Errorf("Attempt to write to log stream after log is closed; discarding log entry")
		return
	}
	entry.SeqNo = l.state.nextSeqNo
	l.state.nextSeqNo++
	if entry.Kind == models.LogEntryKindLine || entry.Kind == models.LogEntryKindError {
		entry.LineNo = l.state.nextLineNo
		l.state.nextLineNo++
	}
	l.state.buffer = append(l.state.buffer, entry)
	if len(l.state.buffer) >= defaultMaxBufferedEntries {
		l.flushBufferLocked()
	}
}

func (l *LogSequencer) Flush() {
	l.flushBuffer()
	l.next.Flush()
}

func (l *LogSequencer) Close() {
	l.mu.Lock()
	if l.state.closed {
		l.log.Warnf("Attempt to Close log stream that is already closed; ignoring Close")
		l.mu.Unlock()
		return
	}
	l.state.closed = true
	l.mu.Unlock()

	if l.ticker != nil {
		l.ticker.Stop()
		close(l.tickerDoneC)
	}
	l.next.Close()
}

func (l *LogSequencer) flushBuffer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.closed {
		return
	}
	l.flushBufferLocked()
}

func (l *LogSequencer) flushBufferLocked() {
	for _, entry := range l.state.buffer {
		l.next.Write(entry)
	}
	l.state.buffer = l.state.buffer[:0]
}
