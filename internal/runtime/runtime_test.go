package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/gefilte/internal/config"
)

func TestWriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, WriteOutput("-", []byte("hello"), &stdout))
	assert.Equal(t, "hello", stdout.String())

	path := filepath.Join(t.TempDir(), "out.xml")
	require.NoError(t, WriteOutput(path, []byte("<feed/>"), &stdout))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<feed/>", string(got))

	require.Error(t, WriteOutput("", nil, &stdout))
	require.ErrorContains(t, WriteOutput("../escape.xml", nil, &stdout), "escapes working directory")
	require.ErrorContains(t, WriteOutput("..", nil, &stdout), "escapes working directory")
}

func TestWriteOutputAllowsDotPrefixedNames(t *testing.T) {
	t.Chdir(t.TempDir())
	var stdout bytes.Buffer
	require.NoError(t, WriteOutput("..filters.xml", []byte("<feed/>"), &stdout))
	got, err := os.ReadFile("..filters.xml")
	require.NoError(t, err)
	assert.Equal(t, "<feed/>", string(got))
	assert.Empty(t, stdout.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(&buf, config.LoggingConfig{Level: "nope"})
	require.Error(t, err)
}
