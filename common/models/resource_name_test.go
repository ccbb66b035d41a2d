package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourceNameTruncation(t *testing.T) {
	tooLong := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	normalized := NormalizeResourceName(tooLong)
	require.Equal(t, "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijkl", normalized[prefixLen:])
}

func TestResourceNameValidation(t *testing.T) {
	require.NoError(t, ResourceName("docs").Validate())
	require.NoError(t, ResourceName("py3-lint_2").Validate())
	require.Error(t, ResourceName("").Validate())
	require.Error(t, ResourceName("has space").Validate())
	require.Error(t, ResourceName("has.dot").Validate())
}

func TestNormalizeResourceNameReplacesDisallowedChars(t *testing.T) {
	require.Equal(t, "style-check", NormalizeResourceName("style check"))
	require.Equal(t, "doc-html", NormalizeResourceName("doc html"))
}
