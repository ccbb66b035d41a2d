package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
)

// LogConverter converts a plaintext stream to structured log entries.
// Commands attach one converter to stdout/stderr so their output lands
// inside the command's block.
type LogConverter struct {
	*util.StatefulService
	clk             clock.Clock
	log             logger.Log
	next            LogWriter
	parentBlockName *models.ResourceName
	reader          io.ReadCloser
	writer          io.WriteCloser
}

func NewLogConverter(clk clock.Clock, logFactory logger.LogFactory, next LogWriter, parentBlockName *models.ResourceName) *LogConverter {
	reader, writer := io.Pipe()
	l := &LogConverter{
		clk:             clk,
		log:             logFactory("LogConverter"),
		next:            next,
		parentBlockName: parentBlockName,
		reader:          reader,
		writer:          writer,
	}
	l.StatefulService = util.NewStatefulService(context.Background(), l.log, l.loop)
	return l
}

func (l *LogConverter) Write(p []byte) (n int, err error) {
	return l.writer.Write(p)
}

func (l *LogConverter) Close() error {
	defer l.Stop()
	return l.reader.Close()
}

func (l *LogConverter) loop() {
	scanner := bufio.NewScanner(l.reader)
	for l.Ctx().Err() == nil && scanner.Scan() {
		l.next.Write(models.NewLogEntryLine(models.NewTime(l.clk.Now()), scanner.Text(), l.parentBlockName))
	}
	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		// Send an error down the log pipeline
		errorText := fmt.Sprintf("Error reading data to be logged; some log data may be missing: %s", err.Error())
		l.next.Write(models.NewLogEntryError(models.NewTime(l.clk.Now()), errorText, l.parentBlockName))
		// Log the error to the engine's log
		l.log.Errorf("Ignoring error reading from scanner: %v", err)
	}
}
