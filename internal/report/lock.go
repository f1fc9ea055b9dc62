package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/nexora/internal/errors"
)

// LockFile is the default location of the export lock, relative to the
// working directory.
const LockFile = ".nexora/reports.lock.json"

const lockVersion = 1

// Lock remembers the digest of every exported report so repeated exports can
// tell whether the backend content changed.
type Lock struct {
	Version int                     `json:"version"`
	Reports map[string]LockedReport `json:"reports"`
}

// LockedReport is the last export of one project's report.
type LockedReport struct {
	Digest     string    `json:"blake3"`
	Path       string    `json:"path"`
	ExportedAt time.Time `json:"exported_at"`
}

// Digest returns the hex blake3 digest of report content.
func Digest(content string) string {
	hasher := blake3.New()
	_, _ = hasher.Write([]byte(content))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// NewLock returns an empty lock.
func NewLock() *Lock {
	return &Lock{Version: lockVersion, Reports: make(map[string]LockedReport)}
}

// LoadLock reads the lock at path. A missing file yields an empty lock.
func LoadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLock(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read report lock", err)
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportLockInvalid, "failed to parse report lock "+path, err).
			WithSuggestion("Delete the lock file; it is rebuilt on the next export")
	}
	if lock.Version != lockVersion {
		return nil, errors.New(errors.ErrCodeReportLockInvalid, fmt.Sprintf("unsupported report lock version %d", lock.Version))
	}
	if lock.Reports == nil {
		lock.Reports = make(map[string]LockedReport)
	}
	return &lock, nil
}

// Save writes the lock to path, creating its directory.
func (l *Lock) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create lock directory", err)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "failed to marshal report lock", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write report lock", err)
	}
	return nil
}

// Changed reports whether digest differs from the last export of the
// project. known is false when the project was never exported.
func (l *Lock) Changed(projectID int, digest string) (changed, known bool) {
	prev, ok := l.Reports[strconv.Itoa(projectID)]
	if !ok {
		return true, false
	}
	return prev.Digest != digest, true
}

// Record stores an export of the project.
func (l *Lock) Record(projectID int, digest, path string, at time.Time) {
	l.Reports[strconv.Itoa(projectID)] = LockedReport{
		Digest:     digest,
		Path:       path,
		ExportedAt: at.UTC(),
	}
}
