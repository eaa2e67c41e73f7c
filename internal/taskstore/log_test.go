package taskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestLogSourceReadsRecords(t *testing.T) {
	path := writeLog(t, `
{"id":"bd-x1","status":"open","created_at":"2026-01-01T10:00:00Z"}
# a comment line

{"id":"bd-x1","status":"closed","closed_at":"2026-01-02T10:00:00Z"}
`)

	src := NewLogSource(path)
	records, err := src.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Empty(t, src.Rejected())

	tasks, rejected, err := Load(src)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, StatusClosed, tasks["bd-x1"].Status)
}

func TestLogSourceRejectsUnparsableLines(t *testing.T) {
	path := writeLog(t, `
{"id":"bd-ok","status":"open"}
{this is not json}
`)

	src := NewLogSource(path)
	records, err := src.Records()
	require.NoError(t, err)
	assert.Len(t, records, 1)

	rejects := src.Rejected()
	require.Len(t, rejects, 1)
	assert.Contains(t, rejects[0].Error(), "unparsable record")
}

func TestLogSourceMissingFile(t *testing.T) {
	src := NewLogSource(filepath.Join(t.TempDir(), "nope.jsonl"))
	_, err := src.Records()
	assert.Error(t, err)
}
