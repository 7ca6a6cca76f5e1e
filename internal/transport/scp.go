package transport

import (
	"context"
	"errors"
	"os/exec"
	"path"
	"strings"

	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// CommandRunner runs external commands
type CommandRunner interface {
	// Run executes name with args and returns its combined output
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements CommandRunner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// SCP publishes to a remote host with the scp and ssh commands
type SCP struct {
	host   string // user@host
	root   string
	scp    []string
	ssh    []string
	runner CommandRunner
	fs     afero.Fs
}

// NewSCP creates an scp backend for a user@host:/path destination
func NewSCP(cfg Config) (*SCP, error) {
	host, root, ok := strings.Cut(cfg.Destination, ":")
	if !ok || host == "" || root == "" || strings.Contains(host, "/") {
		return nil, models.NewConfigError("invalid scp destination %q (expected user@host:/path)", cfg.Destination)
	}

	scpCommand := strings.Fields(cfg.SCPCommand)
	if len(scpCommand) == 0 {
		scpCommand = []string{"scp"}
	}
	sshCommand := strings.Fields(cfg.SSHCommand)
	if len(sshCommand) == 0 {
		sshCommand = []string{"ssh"}
	}

	runner := cfg.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &SCP{
		host:   host,
		root:   root,
		scp:    scpCommand,
		ssh:    sshCommand,
		runner: runner,
		fs:     fs,
	}, nil
}

// Kind returns KindSCP
func (s *SCP) Kind() Kind {
	return KindSCP
}

// Location returns a host:path location below the destination
func (s *SCP) Location(elem ...string) string {
	return s.host + ":" + path.Join(append([]string{s.root}, elem...)...)
}

// URL returns an scp:// URL for location
func (s *SCP) URL(location string) string {
	_, p, _ := strings.Cut(location, ":")
	return "scp://" + s.host + "/" + strings.TrimPrefix(p, "/")
}

// Put creates the remote parent directory and copies localPath to location
func (s *SCP) Put(ctx context.Context, localPath, location string) error {
	_, remotePath, _ := strings.Cut(location, ":")

	mkdir := "mkdir -p " + shellQuote(path.Dir(remotePath))
	if err := s.run(ctx, "put", location, s.ssh, s.host, mkdir); err != nil {
		return err
	}

	logrus.Debugf("Copying %s to %s", localPath, location)
	return s.run(ctx, "put", location, s.scp, localPath, location)
}

// Fetch copies location into a staging file and returns its content. A
// missing remote file cannot be told apart from a failed copy. The staging
// file lives on the configured filesystem, which the runner has to be able to
// write to.
func (s *SCP) Fetch(ctx context.Context, location string) ([]byte, error) {
	staging, err := workspace.New(s.fs, "caryatid-fetch-*")
	if err != nil {
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}
	defer staging.Close()

	if err := s.run(ctx, "fetch", location, s.scp, location, staging.Path()); err != nil {
		return nil, err
	}

	data, err := staging.Read()
	if err != nil {
		return nil, &Error{Op: "fetch", Location: location, Err: err}
	}
	return data, nil
}

func (s *SCP) run(ctx context.Context, op, location string, command []string, args ...string) error {
	argv := append(append([]string{}, command[1:]...), args...)
	logrus.Debugf("Running %s %s", command[0], strings.Join(argv, " "))

	output, err := s.runner.Run(ctx, command[0], argv...)
	if err == nil {
		return nil
	}

	tErr := &Error{
		Op:       op,
		Location: location,
		Reason:   strings.TrimSpace(string(output)),
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		tErr.ExitCode = exitErr.ExitCode()
	} else {
		tErr.Err = err
	}
	return tErr
}

// shellQuote quotes s for a POSIX shell
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
