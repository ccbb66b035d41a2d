package logging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

func TestMakeFiller(t *testing.T) {
	filler := makeFiller("secret", 0)
	assert.Equal(t, []byte(""), filler)

	filler = makeFiller("secret", 1)
	assert.Equal(t, []byte("s"), filler)

	filler = makeFiller("secret", 6)
	assert.Equal(t, []byte("secret"), filler)

	filler = makeFiller("secret", 9)
	assert.Equal(t, []byte("secretsec"), filler)

	filler = makeFiller("secret", 12)
	assert.Equal(t, []byte("secretsecret"), filler)
}

func TestLogScrubber_Write(t *testing.T) {

	scenarios := []struct {
		secrets         []string
		inputs          []string
		expectedOutputs []string
	}{{
		secrets:         []string{"world"},
		inputs:          []string{"Hello world", "Hello World", "wor", "ld", "helloworld", "hello\nworld"},
		expectedOutputs: []string{"Hello *****", "Hello World", "***", "**", "hello*****", "hello\n*****"},
	}}

	logRegistry, err := logger.NewLogRegistry("")
	assert.Nil(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)
	pipelineCloser := func() {} // no-op

	for _, scenario := range scenarios {
		writer := &fakeLogWriter{}
		scrubber := NewLogScrubber(logFactory, pipelineCloser, writer, scenario.secrets)
		for _, input := range scenario.inputs {
			scrubber.Write(models.NewLogEntryLine(models.NewTime(time.Now()), input, nil))
		}
		scrubber.Flush() // ensure all buffered writes are sent
		scrubber.Close()

		entries := writer.getEntries()
		assert.Len(t, entries, len(scenario.expectedOutputs))
		for i := 0; i < len(entries); i++ {
			assert.Equal(t, scenario.expectedOutputs[i], entries[i].Text)
		}
	}
}

type fakeLogWriter struct {
	mu      sync.Mutex
	entries []*models.LogEntry
}

func (f *fakeLogWriter) Write(entry *models.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeLogWriter) Flush() {}

func (f *fakeLogWriter) Close() {}

func (f *fakeLogWriter) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeLogWriter) getEntries() []*models.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.LogEntry(nil), f.entries...)
}
