package run

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine"
)

func TestFailedRunError(t *testing.T) {
	result := &engine.RunResult{
		Run: &models.Run{Status: models.StatusFailed},
		EnvResults: []*models.EnvResult{
			{Name: "build", Status: models.StatusSucceeded},
			{Name: "lint", Status: models.StatusFailed},
			{Name: "test", Status: models.StatusSkipped},
		},
	}

	var out bytes.Buffer
	err := failedRunError(&out, "/work/.runway", result)
	require.Error(t, err)
	assert.Equal(t, "2 environment(s) did not succeed", err.Error())

	assert.Contains(t, out.String(), "lint: failed (see /work/.runway/envs/lint/logs/lint.log)")
	assert.Contains(t, out.String(), "test: skipped")
	assert.NotContains(t, out.String(), "build:")
}
