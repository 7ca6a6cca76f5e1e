package utils

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/spf13/afero"
)

// DefaultChecksumType is the checksum recorded in catalogs unless configured otherwise
const DefaultChecksumType = "sha1"

// hashChunkSize is the read size used when streaming files through a hash
const hashChunkSize = 64 * 1024

// NewHash returns a hash for a catalog checksum type
func NewHash(checksumType string) (hash.Hash, error) {
	switch checksumType {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum type %q", checksumType)
	}
}

// ChecksumReader streams r through the hash for checksumType and returns the hex digest
func ChecksumReader(r io.Reader, checksumType string) (string, error) {
	h, err := NewHash(checksumType)
	if err != nil {
		return "", err
	}

	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumFile calculates the checksum of a file without loading it in memory
func ChecksumFile(fs afero.Fs, path, checksumType string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := ChecksumReader(f, checksumType)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sum, nil
}
