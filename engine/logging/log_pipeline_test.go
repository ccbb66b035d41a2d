package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

func TestLogPipeline(t *testing.T) {
	scenarios := []struct {
		name            string
		secrets         []string
		inputs          []string
		expectedOutputs []string
	}{
		{
			name:            "no secrets",
			inputs:          []string{"Hello world", "Hello World", "", "a longer line of plain output"},
			expectedOutputs: []string{"Hello world", "Hello World", "", "a longer line of plain output"},
		},
		{
			name:            "secrets scrubbed",
			secrets:         []string{"hunter2"},
			inputs:          []string{"password is hunter2", "hun", "ter2", "nothing here"},
			expectedOutputs: []string{"password is *******", "***", "****", "nothing here"},
		},
	}

	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			logFilePath := filepath.Join(t.TempDir(), "env.log")
			var plaintext strings.Builder

			pipeline, err := NewFileLogPipeline(clock.New(), logFactory, scenario.secrets, logFilePath, &plaintext)
			require.NoError(t, err)

			for _, input := range scenario.inputs {
				pipeline.writer.Write(models.NewLogEntryLine(models.NewTime(time.Now()), input, nil))
			}
			pipeline.Flush() // must call Flush before Close
			pipeline.Close()

			entries := readLogFile(t, logFilePath)
			require.Len(t, entries, len(scenario.expectedOutputs))
			for i, entry := range entries {
				assert.Equal(t, models.LogEntryKindLine, entry.Kind)
				assert.Equal(t, scenario.expectedOutputs[i], entry.Text)
				assert.Equal(t, i+1, entry.SeqNo)
				assert.Equal(t, i+1, entry.LineNo)
			}
			assert.Equal(t, strings.Join(scenario.expectedOutputs, "\n")+"\n", plaintext.String())
		})
	}
}

func TestLogPipeline_Blocks(t *testing.T) {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)

	logFilePath := filepath.Join(t.TempDir(), "env.log")
	pipeline, err := NewFileLogPipeline(clock.New(), logFactory, nil, logFilePath, nil)
	require.NoError(t, err)

	sLog := pipeline.StructuredLogger()
	inner := sLog.Wrap("lint", "Running lint")
	inner.WriteLine("all good")
	inner.WriteError("well, almost")
	sLog = inner.Unwrap()
	sLog.WriteLine("done")

	pipeline.Flush()
	pipeline.Close()

	entries := readLogFile(t, logFilePath)
	require.Len(t, entries, 4)

	assert.Equal(t, models.LogEntryKindBlock, entries[0].Kind)
	assert.Equal(t, models.ResourceName("lint"), entries[0].Name)
	assert.Equal(t, "Running lint", entries[0].Text)
	assert.Nil(t, entries[0].ParentBlockName)

	assert.Equal(t, models.LogEntryKindLine, entries[1].Kind)
	require.NotNil(t, entries[1].ParentBlockName)
	assert.Equal(t, models.ResourceName("lint"), *entries[1].ParentBlockName)

	assert.Equal(t, models.LogEntryKindError, entries[2].Kind)
	assert.Equal(t, "well, almost", entries[2].Text)

	assert.Equal(t, models.LogEntryKindLine, entries[3].Kind)
	assert.Nil(t, entries[3].ParentBlockName)

	// Blocks are sequenced but not line-numbered
	assert.Equal(t, 1, entries[0].SeqNo)
	assert.Equal(t, 0, entries[0].LineNo)
	assert.Equal(t, 1, entries[1].LineNo)
	assert.Equal(t, 2, entries[2].LineNo)
	assert.Equal(t, 3, entries[3].LineNo)
}

func TestLogConverter(t *testing.T) {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)

	writer := &fakeLogWriter{}
	block := models.ResourceName("build")
	converter := NewLogConverter(clock.New(), logFactory, writer, &block)
	converter.Start()

	_, err = converter.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)

	// The converter consumes the pipe on a background goroutine
	require.Eventually(t, func() bool { return writer.entryCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	err = converter.Close()
	require.NoError(t, err)

	entries := writer.getEntries()
	assert.Equal(t, "line one", entries[0].Text)
	assert.Equal(t, "line two", entries[1].Text)
	require.NotNil(t, entries[0].ParentBlockName)
	assert.Equal(t, block, *entries[0].ParentBlockName)
}

func readLogFile(t *testing.T, path string) []*models.LogEntry {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []*models.LogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		entry := &models.LogEntry{}
		require.NoError(t, json.Unmarshal([]byte(line), entry))
		entries = append(entries, entry)
	}
	return entries
}
