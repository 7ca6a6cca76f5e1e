// Package box inspects box archives to find which provider they were built for.
package box

import (
	"archive/tar"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/ralt/caryatid/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrNoMetadata is returned when a box archive has no metadata.json
var ErrNoMetadata = errors.New("box has no metadata.json")

// Metadata is the content of the metadata.json file at the root of a box
type Metadata struct {
	Provider     string `json:"provider"`
	Format       string `json:"format,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

// metadataScanLimit caps how much of the decompressed archive is read looking
// for metadata.json
var metadataScanLimit int64 = 64 << 20

// ReadMetadata reads metadata.json from a box archive. Boxes are tar streams,
// optionally compressed with gzip, zstd or xz. The stream is decompressed and
// read until metadata.json is found, for at most metadataScanLimit bytes, after
// which ErrNoMetadata is returned.
func ReadMetadata(fs afero.Fs, boxPath string) (*Metadata, error) {
	f, err := fs.Open(boxPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// Read first bytes for magic byte detection
	header, err := br.Peek(6)
	if err != nil && len(header) == 0 {
		return nil, fmt.Errorf("failed to read %s: %w", boxPath, err)
	}

	compression := utils.DetectCompression(header)
	logrus.Debugf("Box %s compression: %s", boxPath, compression)

	r, closeFn, err := utils.Decompress(br, compression)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", compression, err)
	}
	defer closeFn()

	limited := &io.LimitedReader{R: r, N: metadataScanLimit}
	truncated := func() error {
		return fmt.Errorf("%w in the first %d bytes of %s", ErrNoMetadata, metadataScanLimit, boxPath)
	}

	tr := tar.NewReader(limited)
	for {
		hdr, err := tr.Next()
		if err != nil && limited.N <= 0 {
			return nil, truncated()
		}
		if err == io.EOF {
			return nil, ErrNoMetadata
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read box archive: %w", err)
		}

		if path.Clean(strings.TrimPrefix(hdr.Name, "./")) != "metadata.json" {
			continue
		}

		var m Metadata
		if err := json.NewDecoder(tr).Decode(&m); err != nil {
			if limited.N <= 0 {
				return nil, truncated()
			}
			return nil, fmt.Errorf("failed to decode metadata.json: %w", err)
		}
		return &m, nil
	}
}

// ProviderFromFilename extracts the provider from names like
// "devops.virtualbox.box". It returns "" when the name has no provider part.
func ProviderFromFilename(boxPath string) string {
	parts := strings.Split(filepath.Base(boxPath), ".")
	if len(parts) < 3 || parts[len(parts)-1] != "box" {
		return ""
	}
	return parts[len(parts)-2]
}

// DetectProvider determines the provider of a box from its metadata.json,
// falling back to the file name. Like ReadMetadata it may decompress up to
// metadataScanLimit bytes of the box.
func DetectProvider(fs afero.Fs, boxPath string) (string, error) {
	m, err := ReadMetadata(fs, boxPath)
	if err == nil && m.Provider != "" {
		return m.Provider, nil
	}
	if err != nil {
		logrus.Debugf("Could not read metadata from %s: %v", boxPath, err)
	}

	if provider := ProviderFromFilename(boxPath); provider != "" {
		return provider, nil
	}

	return "", fmt.Errorf("cannot determine provider of %s", boxPath)
}
