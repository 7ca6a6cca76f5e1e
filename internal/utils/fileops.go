package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// CopyFile copies a file from src to dst, creating the destination directory if needed.
// The copy lands in a temporary sibling of dst and is renamed over it, so an
// existing dst is either fully replaced or left as it was.
func CopyFile(fs afero.Fs, src, dst string) error {
	same, err := SameFile(fs, src, dst)
	if err != nil {
		return err
	}
	if same {
		logrus.Debugf("Same path = no copy needed: %s", dst)
		return nil
	}

	// Create destination directory if it doesn't exist
	dir := filepath.Dir(dst)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	srcFile, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, srcFile); err != nil {
		_ = fs.Remove(tmpName)
		return err
	}

	if err := fs.Rename(tmpName, dst); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	return nil
}

func writeAndClose(dst afero.File, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	// Sync to disk
	if err := dst.Sync(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// SameFile reports whether src and dst name the same file. Paths are compared
// after cleaning; on the OS filesystem links resolving to one inode also match.
func SameFile(fs afero.Fs, src, dst string) (bool, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return false, err
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return false, err
	}
	if absSrc == absDst {
		return true, nil
	}

	if _, ok := fs.(*afero.OsFs); !ok {
		return false, nil
	}
	srcInfo, err := os.Stat(absSrc)
	if err != nil {
		return false, nil
	}
	dstInfo, err := os.Stat(absDst)
	if err != nil {
		return false, nil
	}
	return os.SameFile(srcInfo, dstInfo), nil
}
