package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterOSArgs(t *testing.T) {

	var whitelist = []string{
		"workdir",
		"manifest",
		"database_driver",
		"log_levels",
	}

	var in = []string{
		"/usr/bin/runway",
		"--workdir",
		"/home/ci/.runway/local",
		"--manifest",
		".runway.yml",
		"--history_connection_string",
		"secret",
		"--database_driver",
		"postgres",
		"--log_levels",
		"Scheduler=debug",
	}

	var out = []string{
		"/usr/bin/runway",
		"--workdir",
		"/home/ci/.runway/local",
		"--manifest",
		".runway.yml",
		"--history_connection_string",
		"******",
		"--database_driver",
		"postgres",
		"--log_levels",
		"Scheduler=debug",
	}

	filtered := FilterOSArgs(in, whitelist)
	require.Equal(t, out, filtered)
}

func TestFilterOSEnviron(t *testing.T) {
	t.Setenv("RUNWAY_TEST_KEEP", "keep")
	t.Setenv("RUNWAY_TEST_DROP", "drop")

	filtered := FilterOSEnviron([]string{"RUNWAY_TEST_KEEP"})
	require.Contains(t, filtered, "RUNWAY_TEST_KEEP=keep")
	require.NotContains(t, filtered, "RUNWAY_TEST_DROP=drop")
}
