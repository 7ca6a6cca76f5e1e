package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fluxcd/pkg/lockedfile"
	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Local publishes to a directory
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a local backend rooted at dir
func NewLocal(fs afero.Fs, dir string) (*Local, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, models.NewConfigError("invalid destination %q: %v", dir, err)
	}
	return &Local{fs: fs, root: root}, nil
}

// Kind returns KindLocal
func (l *Local) Kind() Kind {
	return KindLocal
}

// Location joins elem onto the destination directory
func (l *Local) Location(elem ...string) string {
	return filepath.Join(append([]string{l.root}, elem...)...)
}

// URL returns a file:// URL for location
func (l *Local) URL(location string) string {
	return "file://" + filepath.ToSlash(location)
}

// Put copies localPath to location, creating parent directories. The file at
// location is replaced by rename, and a localPath that already is location is
// left alone.
func (l *Local) Put(ctx context.Context, localPath, location string) error {
	logrus.Debugf("Copying %s to %s", localPath, location)
	if err := utils.CopyFile(l.fs, localPath, location); err != nil {
		return &Error{Op: "put", Location: location, Err: err}
	}
	return nil
}

// Fetch reads location
func (l *Local) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, err := afero.ReadFile(l.fs, location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Op: "fetch", Location: location, Err: ErrNotFound}
		}
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}
	return data, nil
}

// Lock takes an exclusive file lock next to location
func (l *Local) Lock(location string) (func(), error) {
	if _, ok := l.fs.(*afero.OsFs); !ok {
		return nil, fmt.Errorf("locking requires the OS filesystem")
	}

	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return nil, err
	}

	lockFile := location + ".lock"
	logrus.Debugf("Waiting for lock %s", lockFile)
	mutex := lockedfile.MutexAt(lockFile)
	return mutex.Lock()
}
