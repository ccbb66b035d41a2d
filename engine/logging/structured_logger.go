package logging

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

// StructuredLogger writes structured entries to an environment log.
// Provides utility functions for managing the level of nested blocks.
type StructuredLogger struct {
	clk    clock.Clock
	log    logger.Log
	block  *models.ResourceName
	outer  *StructuredLogger
	writer LogWriter
}

func NewStructuredLogger(clk clock.Clock, factory logger.LogFactory, writer LogWriter) *StructuredLogger {
	return &StructuredLogger{
		clk:    clk,
		log:    factory("StructuredLogger"),
		writer: writer,
	}
}

// Block returns the name of the current block, or nil at the top level.
func (l *StructuredLogger) Block() *models.ResourceName {
	return l.block
}

// WriteLine writes a line to the log inside the current block (if any).
func (l *StructuredLogger) WriteLine(text string) {
	line := models.NewLogEntryLine(models.NewTime(l.clk.Now()), text, l.block)
	l.writer.Write(line)
}

// WriteLinef writes a line with formatting to the log inside the current block (if any).
func (l *StructuredLogger) WriteLinef(format string, args ...interface{}) {
	l.WriteLine(fmt.Sprintf(format, args...))
}

// WriteError writes an error message to the log inside the current block (if any).
func (l *StructuredLogger) WriteError(errorText string) {
	entry := models.NewLogEntryError(models.NewTime(l.clk.Now()), errorText, l.block)
	l.writer.Write(entry)
}

// WriteErrorf writes an error message with formatting to the log inside the current block (if any).
func (l *StructuredLogger) WriteErrorf(format string, args ...interface{}) {
	l.WriteError(fmt.Sprintf(format, args...))
}

// Wrap returns a new logger that will wrap lines inside the named block.
// Use Unwrap() to close the block and return to the current level.
func (l *StructuredLogger) Wrap(name string, text string) *StructuredLogger {
	resourceName := models.ResourceName(name)
	inner := &StructuredLogger{
		clk:    l.clk,
		log:    l.log,
		block:  &resourceName,
		outer:  l,
		writer: l.writer,
	}
	block := models.NewLogEntryBlock(models.NewTime(l.clk.Now()), text, resourceName, l.block)
	l.writer.Write(block)
	return inner
}

// Wrapf returns a new logger that will wrap lines inside the named block.
// Use Unwrap() to close the block and return to the current level.
func (l *StructuredLogger) Wrapf(name string, format string, args ...interface{}) *StructuredLogger {
	return l.Wrap(name, fmt.Sprintf(format, args...))
}

// Unwrap returns the logger above the current block.
func (l *StructuredLogger) Unwrap() *StructuredLogger {
	if l.outer == nil {
		l.log.Panic("No more blocks to unwrap")
	}
	return l.outer
}
