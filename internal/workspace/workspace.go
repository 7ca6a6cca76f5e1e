// Package workspace provides private staging files that are removed when the
// operation using them returns.
package workspace

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Staging is a uniquely named file in the temporary directory of a filesystem.
// Callers defer Close right after New.
type Staging struct {
	fs     afero.Fs
	path   string
	closed bool
}

// New creates an empty staging file. pattern follows os.CreateTemp.
func New(fs afero.Fs, pattern string) (*Staging, error) {
	f, err := afero.TempFile(fs, "", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		fs.Remove(path)
		return nil, err
	}

	logrus.Debugf("Created staging file %s", path)
	return &Staging{fs: fs, path: path}, nil
}

// Path returns the location of the staging file
func (s *Staging) Path() string {
	return s.path
}

// Write replaces the content of the staging file
func (s *Staging) Write(data []byte) error {
	return afero.WriteFile(s.fs, s.path, data, 0600)
}

// Read returns the content of the staging file
func (s *Staging) Read() ([]byte, error) {
	return afero.ReadFile(s.fs, s.path)
}

// Close removes the staging file. It is safe to call more than once.
func (s *Staging) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to remove staging file %s: %v", s.path, err)
		return err
	}
	logrus.Debugf("Removed staging file %s", s.path)
	return nil
}
