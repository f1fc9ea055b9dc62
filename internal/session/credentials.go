package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/nexora/internal/errors"
)

// TokenKey is the JSON key holding the token in the credentials file.
const TokenKey = "auth_token"

// credentials is the on-disk shape of the credentials file.
type credentials struct {
	AuthToken string    `json:"auth_token"`
	Username  string    `json:"username,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// File persists the auth token. It implements api.CredentialSource.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a credentials file at path. Nothing is read until used.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Token returns the stored token, or "" when the file does not exist.
func (f *File) Token(ctx context.Context) (string, error) {
	creds, err := f.load()
	if err != nil {
		return "", err
	}
	return creds.AuthToken, nil
}

// Username returns the username recorded at login, if any.
func (f *File) Username() string {
	creds, err := f.load()
	if err != nil {
		return ""
	}
	return creds.Username
}

func (f *File) load() (credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var creds credentials
	data, err := os.ReadFile(f.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return creds, nil
		}
		return creds, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read credentials", err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, errors.Wrap(errors.ErrCodeCredentialsCorrupt, "credentials file is corrupt: "+f.path, err).
			WithSuggestion("Run 'nexora auth logout' and sign in again")
	}
	return creds, nil
}

// Save writes the token with mode 0600. The write goes to a temp file in the
// same directory and is renamed into place.
func (f *File) Save(token, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create "+dir, err)
	}

	data, err := json.MarshalIndent(credentials{AuthToken: token, Username: username, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "failed to encode credentials", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write credentials", err)
	}
	return nil
}

// Clear removes the stored token. A missing file is not an error.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to remove credentials", err)
	}
	return nil
}
