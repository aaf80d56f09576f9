package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileLedger_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")

	ledger, err := OpenFileLedger(path)
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.Len())

	// The file must now exist so a later append cannot fail on creation.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenFileLedger_UncreatablePath(t *testing.T) {
	_, err := OpenFileLedger(filepath.Join(t.TempDir(), "no", "such", "dir", "codes.txt"))
	assert.Error(t, err)
}

func TestFileLedger_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")

	ledger, err := OpenFileLedger(path)
	require.NoError(t, err)

	require.NoError(t, ledger.Add("winter24"))
	assert.True(t, ledger.Contains("WINTER24"))
	assert.True(t, ledger.Contains("winter24"))

	reloaded, err := OpenFileLedger(path)
	require.NoError(t, err)

	assert.Equal(t, 1, reloaded.Len())
	assert.True(t, reloaded.Contains("WINTER24"))
	assert.Equal(t, []string{"WINTER24"}, reloaded.Codes())
}

func TestFileLedger_AddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")

	ledger, err := OpenFileLedger(path)
	require.NoError(t, err)

	require.NoError(t, ledger.Add("WINTER24"))
	require.NoError(t, ledger.Add("WINTER24"))
	require.NoError(t, ledger.Add("winter24"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "WINTER24\n", string(data))
}

func TestOpenFileLedger_NormalizesAndSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(path, []byte("winter24\n\n  summer25  \nWINTER24\n"), 0o644))

	ledger, err := OpenFileLedger(path)
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.Len())
	assert.True(t, ledger.Contains("WINTER24"))
	assert.True(t, ledger.Contains("SUMMER25"))
}

func TestFileLedger_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")

	ledger, err := OpenFileLedger(path)
	require.NoError(t, err)
	assert.Nil(t, ledger.Export())

	require.NoError(t, ledger.Add("ZED99"))
	require.NoError(t, ledger.Add("ALPHA11"))

	assert.Equal(t, "ALPHA11\nZED99\n", string(ledger.Export()))
}
