package logging

import (
	"io"

	"github.com/benbjohnson/clock"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

// LogPipelineFactory creates and starts a log pipeline for an environment.
type LogPipelineFactory func(clk clock.Clock, secrets []string, logFilePath string, plaintext io.Writer) (LogPipeline, error)

type LogWriter interface {
	// Write a log entry to the pipeline.
	Write(entry *models.LogEntry)
	// Flush any previously written entries being buffered to the log file.
	Flush()
	// Close the pipeline, no longer accepting log entries for writing. Remaining entries being buffered
	// in the pipeline may be discarded.
	Close()
}

// NoOpLogWriter implements the LogWriter interface but takes no action.
type NoOpLogWriter struct {
}

func NewNoOpLogWriter() *NoOpLogWriter {
	return &NoOpLogWriter{}
}

func (w *NoOpLogWriter) Write(entry *models.LogEntry) {
}

func (w *NoOpLogWriter) Flush() {
}

func (w *NoOpLogWriter) Close() {
}

// closeRequester is a function that will request that the pipeline be closed.
// The function will return immediately without waiting for the Close to be complete, so it can be called
// without causing deadlocks.
type closeRequester func()

type LogPipeline interface {
	StructuredLogger() *StructuredLogger
	Converter(parentBlockName *models.ResourceName) *LogConverter
	// Flush ensures all log entries have been written to the log file.
	// Call Flush before calling Close.
	Flush()
	// Close closes the log pipeline, discarding any buffered log entries. To ensure no log entries are
	// discarded, call Flush() before calling Close().
	Close()
}

// NoOpLogPipeline implements the LogPipeline interface but takes no action.
type NoOpLogPipeline struct {
	clk        clock.Clock
	logFactory logger.LogFactory
	writer     LogWriter
}

func NewNoOpLogPipeline() *NoOpLogPipeline {
	return &NoOpLogPipeline{
		clk:        clock.New(), // use a normal basic clock
		logFactory: logger.NoOpLogFactory,
		writer:     NewNoOpLogWriter(),
	}
}

func (l *NoOpLogPipeline) StructuredLogger() *StructuredLogger {
	return NewStructuredLogger(l.clk, l.logFactory, l.writer)
}

func (l *NoOpLogPipeline) Converter(parentBlockName *models.ResourceName) *LogConverter {
	converter := NewLogConverter(l.clk, l.logFactory, l.writer, parentBlockName)
	converter.Start()
	return converter
}

func (l *NoOpLogPipeline) Flush() {
}

func (l *NoOpLogPipeline) Close() {
}

// FileLogPipeline processes log entries for a single environment and writes
// them to the environment's structured log file, optionally teeing plaintext
// output to another writer (typically the console).
type FileLogPipeline struct {
	clk        clock.Clock
	log        logger.Log
	logFactory logger.LogFactory
	writer     LogWriter
}

// NewFileLogPipeline creates a new FileLogPipeline (implementing the LogPipeline interface).
// secrets is the set of plaintext values to scrub from entries before they reach the file.
// If plaintext is non-nil the text of each line and error entry is also written to it.
func NewFileLogPipeline(
	clk clock.Clock,
	factory logger.LogFactory,
	secrets []string,
	logFilePath string,
	plaintext io.Writer,
) (*FileLogPipeline, error) {
	l := &FileLogPipeline{
		clk:        clk,
		log:        factory("LogPipeline"),
		logFactory: factory,
	}

	// Construct the pipeline stages in reverse order
	sink, err := NewLogFileSink(factory, l.requestClose, logFilePath, plaintext)
	if err != nil {
		return nil, err
	}
	scrubber := NewLogScrubber(factory, l.requestClose, sink, secrets)
	sequencer := NewLogSequencer(clk, factory, l.requestClose, scrubber)
	sequencer.Start()

	l.writer = sequencer
	return l, nil
}

// Converter returns a LogConverter that is ready to be used (i.e. already started).
func (l *FileLogPipeline) Converter(parentBlockName *models.ResourceName) *LogConverter {
	converter := NewLogConverter(l.clk, l.logFactory, l.writer, parentBlockName)
	converter.Start()
	return converter
}

func (l *FileLogPipeline) StructuredLogger() *StructuredLogger {
	return NewStructuredLogger(l.clk, l.logFactory, l.writer)
}

// Flush ensures all log entries have been written to the log file.
// Call Flush before calling Close.
func (l *FileLogPipeline) Flush() {
	l.writer.Flush()
}

// Close closes the log pipeline, discarding any buffered log entries. To ensure no log entries are
// discarded, call Flush() before calling Close().
func (l *FileLogPipeline) Close() {
	l.writer.Close()
}

// requestClose closes the log pipeline on a goroutine, returning immediately.
func (l *FileLogPipeline) requestClose() {
	go l.writer.Close()
}
