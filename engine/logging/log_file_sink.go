package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

// LogFileSink is the final stage of the pipeline. It writes each entry as a
// line of JSON to the environment's log file and optionally tees the text of
// line and error entries to a plaintext writer.
type LogFileSink struct {
	mu            sync.Mutex
	log           logger.Log
	closePipeline closeRequester
	file          *os.File
	encoder       *json.Encoder
	plaintext     io.Writer
	logClosed     bool
}

func NewLogFileSink(
	logFactory logger.LogFactory,
	closePipeline closeRequester,
	logFilePath string,
	plaintext io.Writer,
) (*LogFileSink, error) {
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file %q: %w", logFilePath, err)
	}
	return &LogFileSink{
		log:           logFactory("LogFileSink"),
		closePipeline: closePipeline,
		file:          file,
		encoder:       json.NewEncoder(file),
		plaintext:     plaintext,
	}, nil
}

// Write a new entry to the log file.
func (l *LogFileSink) Write(entry *models.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logClosed {
		l.log.Errorf("Attempt to write to log file after log is closed; discarding log entry")
		return
	}
	err := l.encoder.Encode(entry)
	if err != nil {
		l.log.Errorf("Error writing log entry to file; closing log pipeline: %v", err)
		l.closePipeline()
		return
	}
	if l.plaintext != nil && entry.IsPlainText() {
		fmt.Fprintln(l.plaintext, entry.Text)
	}
}

func (l *LogFileSink) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logClosed {
		return
	}
	err := l.file.Sync()
	if err != nil {
		l.log.Errorf("Ignoring error syncing log file: %v", err)
	}
}

func (l *LogFileSink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logClosed {
		l.log.Warnf("Attempt to Close log file that is already closed; ignoring Close")
		return
	}
	l.logClosed = true
	err := l.file.Close()
	if err != nil {
		l.log.Errorf("Ignoring error closing log file: %v", err)
	}
}
