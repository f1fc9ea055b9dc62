package ux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFrom(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, DirName), 0o755))
	nested := filepath.Join(root, "docs", "reports")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, filepath.Join(root, DirName), discoverFrom(nested))
}

func TestDiscoverFromStopsAtGitRoot(t *testing.T) {
	outer := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(outer, DirName), 0o755))
	repo := filepath.Join(outer, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	sub := filepath.Join(repo, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	assert.Equal(t, filepath.Join(sub, DirName), discoverFrom(sub))
}

func TestPathDefaults(t *testing.T) {
	pd := &PathDefaults{Dir: "/work/.nexora"}
	assert.Equal(t, "/work/.nexora/reports.lock.json", pd.ReportLockFile())
	assert.Equal(t, "report-6-storefront-v2.html", pd.ExportFile(6, "Storefront  v2!"))
	assert.Equal(t, "report-7.html", pd.ExportFile(7, "???"))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Storefront":         "storefront",
		"  Mobile Shop (iOS)": "mobile-shop-ios",
		"Über App":           "über-app",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}
