package ux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DirName is the per-workspace directory nexora keeps local state in.
const DirName = ".nexora"

// DiscoverDir searches for a .nexora directory from the working directory
// up to the enclosing git root. When none exists it returns ./.nexora,
// which is created on first write.
func DiscoverDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return discoverFrom(cwd), nil
}

func discoverFrom(start string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return filepath.Join(start, DirName)
}

// PathDefaults provides default locations for workspace files
type PathDefaults struct {
	Dir string
}

// NewPathDefaults uses the discovered .nexora directory, or ./.nexora when
// the working directory cannot be resolved.
func NewPathDefaults() *PathDefaults {
	dir, err := DiscoverDir()
	if err != nil {
		dir = DirName
	}
	return &PathDefaults{Dir: dir}
}

// ReportLockFile is where report export digests are recorded.
func (pd *PathDefaults) ReportLockFile() string {
	return filepath.Join(pd.Dir, "reports.lock.json")
}

// ExportFile is the default file name of an exported report.
func (pd *PathDefaults) ExportFile(projectID int, projectName string) string {
	slug := Slug(projectName)
	if slug == "" {
		return fmt.Sprintf("report-%d.html", projectID)
	}
	return fmt.Sprintf("report-%d-%s.html", projectID, slug)
}

// Slug lowercases name and joins its letters and digits with dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
