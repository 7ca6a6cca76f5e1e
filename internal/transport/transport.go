// Package transport moves boxes and catalogs to and from a publish destination.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ralt/caryatid/internal/models"
	"github.com/spf13/afero"
)

// Kind selects a transport backend
type Kind int

const (
	KindLocal Kind = iota
	KindSCP
	KindS3
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindSCP:
		return "scp"
	case KindS3:
		return "s3"
	default:
		return "unknown"
	}
}

// ParseKind returns the Kind named by s
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "local", "copy", "file":
		return KindLocal, nil
	case "scp":
		return KindSCP, nil
	case "s3":
		return KindS3, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (expected local, scp or s3)", s)
	}
}

// ErrNotFound is wrapped by fetch errors of backends that can tell a missing
// file apart from a failed transfer
var ErrNotFound = errors.New("not found")

// Error is returned for failed transfers
type Error struct {
	Op         string
	Location   string
	StatusCode int
	ExitCode   int
	Reason     string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.Location)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status code '%d'", e.StatusCode)
	}
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err says the fetched file does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Transport interface for publish destinations
type Transport interface {
	// Kind returns the backend kind
	Kind() Kind

	// Location joins path elements onto the destination root
	Location(elem ...string) string

	// URL returns the address clients use to download location
	URL(location string) string

	// Put copies the local file to location
	Put(ctx context.Context, localPath, location string) error

	// Fetch returns the content at location. Backends that can detect a
	// missing file return an error wrapping ErrNotFound.
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Locker is implemented by backends that can serialize catalog updates
type Locker interface {
	// Lock blocks until the lock for location is held
	Lock(location string) (unlock func(), err error)
}

// Config selects and configures a backend
type Config struct {
	Kind        Kind
	Destination string

	// s3
	AccessKey   string
	SecretKey   string
	ContentType string
	HTTPClient  *http.Client

	// scp
	SCPCommand string
	SSHCommand string
	Runner     CommandRunner

	// Filesystem for local files; defaults to the OS filesystem
	Fs afero.Fs
}

// New creates the backend selected by cfg.Kind
func New(cfg Config) (Transport, error) {
	if cfg.Destination == "" {
		return nil, models.NewConfigError("destination is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	switch cfg.Kind {
	case KindLocal:
		return NewLocal(cfg.Fs, cfg.Destination)
	case KindSCP:
		return NewSCP(cfg)
	case KindS3:
		return NewS3(cfg)
	default:
		return nil, models.NewConfigError("unsupported backend %s", cfg.Kind)
	}
}

// DetectsNotFound reports whether backends of kind k can tell a missing file
// apart from a failed fetch
func DetectsNotFound(k Kind) bool {
	return k != KindSCP
}
