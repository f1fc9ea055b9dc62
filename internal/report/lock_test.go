package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nexerrors "github.com/felixgeelhaar/nexora/internal/errors"
)

func TestDigest(t *testing.T) {
	a := Digest("# Storefront")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest("# Storefront"))
	assert.NotEqual(t, a, Digest("# Storefront\n"))
}

func TestLockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".nexora", "reports.lock.json")

	lock, err := LoadLock(path)
	require.NoError(t, err)
	assert.Empty(t, lock.Reports)

	digest := Digest("# v1")
	changed, known := lock.Changed(7, digest)
	assert.True(t, changed)
	assert.False(t, known)

	at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	lock.Record(7, digest, "storefront.html", at)
	require.NoError(t, lock.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := LoadLock(path)
	require.NoError(t, err)
	assert.Equal(t, LockedReport{Digest: digest, Path: "storefront.html", ExportedAt: at}, reloaded.Reports["7"])

	changed, known = reloaded.Changed(7, digest)
	assert.False(t, changed)
	assert.True(t, known)

	changed, known = reloaded.Changed(7, Digest("# v2"))
	assert.True(t, changed)
	assert.True(t, known)
}

func TestLoadLockInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{"},
		{"wrong version", `{"version": 9, "reports": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reports.lock.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadLock(path)
			var nexErr *nexerrors.NexoraError
			require.ErrorAs(t, err, &nexErr)
			assert.Equal(t, nexerrors.ErrCodeReportLockInvalid, nexErr.Code)
		})
	}
}

func TestLoadLockNullReports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.lock.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1}`), 0o600))

	lock, err := LoadLock(path)
	require.NoError(t, err)
	lock.Record(1, "x", "a.html", time.Now())
	assert.Len(t, lock.Reports, 1)
}
