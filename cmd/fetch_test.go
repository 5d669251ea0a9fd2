package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKeywordsSingleTerm(t *testing.T) {
	keywords, err := resolveKeywords(&fetchFlags{searchString: "kids on boat"})
	require.NoError(t, err)
	assert.Equal(t, []string{"kids on boat"}, keywords)
}

func TestResolveKeywordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("boats\n\n  planes  \ntrains\n"), 0o600))

	keywords, err := resolveKeywords(&fetchFlags{searchFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"boats", "planes", "trains"}, keywords)
}

func TestResolveKeywordsEmptyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0o600))

	_, err := resolveKeywords(&fetchFlags{searchFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains no keywords")
}

func TestResolveKeywordsMissingFileFails(t *testing.T) {
	_, err := resolveKeywords(&fetchFlags{searchFile: filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
}
