// Package publisher uploads a box and records it in the catalog of its name.
//
// A publish is a read-modify-write of the catalog document: the catalog is
// fetched, merged in memory and written back whole, after the box itself was
// uploaded. Two publishers updating the same catalog at the same time can
// overwrite each other's entries unless locking is enabled on a backend that
// supports it.
package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/ralt/caryatid/internal/catalog"
	"github.com/ralt/caryatid/internal/models"
	"github.com/ralt/caryatid/internal/signer"
	"github.com/ralt/caryatid/internal/transport"
	"github.com/ralt/caryatid/internal/utils"
	"github.com/ralt/caryatid/internal/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Config configures a Publisher
type Config struct {
	Transport transport.Transport

	// Filesystem holding the box and the staging files; defaults to the OS filesystem
	Fs afero.Fs

	// Signer signs the catalog when set
	Signer signer.Signer

	ChecksumType     string
	BaseURL          string
	Lock             bool
	AssumeNewCatalog bool
}

// Publisher publishes boxes through one transport
type Publisher struct {
	transport        transport.Transport
	fs               afero.Fs
	signer           signer.Signer
	checksumType     string
	baseURL          string
	lock             bool
	assumeNewCatalog bool
}

// Box is a box file to publish
type Box struct {
	Name        string
	Description string
	Version     string
	Provider    string
	Path        string
}

// Result describes where a published box and its catalog were written
type Result struct {
	BoxLocation       string
	BoxURL            string
	CatalogLocation   string
	SignatureLocation string
	PublicKeyLocation string
	ChecksumType      string
	Checksum          string
}

// New creates a Publisher
func New(cfg Config) (*Publisher, error) {
	if cfg.Transport == nil {
		return nil, models.NewConfigError("transport is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.ChecksumType == "" {
		cfg.ChecksumType = utils.DefaultChecksumType
	}
	if _, err := utils.NewHash(cfg.ChecksumType); err != nil {
		return nil, models.NewConfigError("%v", err)
	}

	return &Publisher{
		transport:        cfg.Transport,
		fs:               cfg.Fs,
		signer:           cfg.Signer,
		checksumType:     cfg.ChecksumType,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		lock:             cfg.Lock,
		assumeNewCatalog: cfg.AssumeNewCatalog,
	}, nil
}

// BoxFilename returns the file name a box is published under
func BoxFilename(name, version, provider string) string {
	return fmt.Sprintf("%s_%s_%s.box", name, version, provider)
}

// CatalogFilename returns the file name of the catalog for a box name
func CatalogFilename(name string) string {
	return name + ".json"
}

// SignatureFilename returns where the detached signature of a catalog is written
func SignatureFilename(catalogLocation string) string {
	return catalogLocation + ".asc"
}

// PublicKeyFilename returns where the armored public key matching a catalog
// signature is written
func PublicKeyFilename(catalogLocation string) string {
	return catalogLocation + ".pub"
}

// Publish uploads the box and then records it in the catalog. The catalog is
// only written once the box upload succeeded, and it is written in one piece,
// so a failure leaves it as it was. A box uploaded before a catalog failure is
// not removed.
func (p *Publisher) Publish(ctx context.Context, box Box) (*Result, error) {
	if err := validateBox(box); err != nil {
		return nil, err
	}

	boxFile := BoxFilename(box.Name, box.Version, box.Provider)
	fail := func(phase models.Phase, err error) error {
		return &models.PublishError{Phase: phase, Box: boxFile, Err: err}
	}

	// Step 1: Hash the box
	logrus.Infof("Calculating %s checksum of %s", p.checksumType, box.Path)
	checksum, err := utils.ChecksumFile(p.fs, box.Path, p.checksumType)
	if err != nil {
		return nil, fail(models.PhaseHash, err)
	}
	logrus.Debugf("Checksum of %s: %s", box.Path, checksum)

	// Step 2: Resolve locations
	result := &Result{
		BoxLocation:     p.transport.Location("boxes", boxFile),
		CatalogLocation: p.transport.Location(CatalogFilename(box.Name)),
		ChecksumType:    p.checksumType,
		Checksum:        checksum,
	}
	if p.baseURL != "" {
		result.BoxURL = p.baseURL + "/boxes/" + boxFile
	} else {
		result.BoxURL = p.transport.URL(result.BoxLocation)
	}

	// Step 3: Upload the box
	logrus.Infof("Uploading box to %s", result.BoxLocation)
	if err := p.transport.Put(ctx, box.Path, result.BoxLocation); err != nil {
		return nil, fail(models.PhaseUpload, err)
	}

	if p.lock {
		locker, ok := p.transport.(transport.Locker)
		if !ok {
			return nil, fail(models.PhaseLock, fmt.Errorf("the %s backend does not support locking", p.transport.Kind()))
		}
		unlock, err := locker.Lock(result.CatalogLocation)
		if err != nil {
			return nil, fail(models.PhaseLock, err)
		}
		defer unlock()
	}

	// Step 4: Fetch the current catalog
	current, err := p.fetchCatalog(ctx, result.CatalogLocation)
	if err != nil {
		return nil, fail(models.PhaseFetch, err)
	}

	// Step 5: Merge
	updated, err := catalog.Upsert(current, models.BoxFact{
		Name:         box.Name,
		Description:  box.Description,
		Version:      box.Version,
		Provider:     box.Provider,
		URL:          result.BoxURL,
		ChecksumType: p.checksumType,
		Checksum:     checksum,
	})
	if err != nil {
		return nil, fail(models.PhaseMerge, err)
	}

	var signature, publicKey []byte
	if p.signer != nil {
		signature, err = p.signer.SignDetached(updated)
		if err != nil {
			return nil, fail(models.PhaseSign, err)
		}
		publicKey, err = p.signer.GetPublicKey()
		if err != nil {
			return nil, fail(models.PhaseSign, err)
		}
	}

	// Step 6: Write the catalog back
	logrus.Infof("Writing catalog to %s", result.CatalogLocation)
	if err := p.putBytes(ctx, updated, result.CatalogLocation); err != nil {
		return nil, fail(models.PhaseWriteBack, err)
	}

	if signature != nil {
		result.SignatureLocation = SignatureFilename(result.CatalogLocation)
		logrus.Infof("Writing catalog signature to %s", result.SignatureLocation)
		if err := p.putBytes(ctx, signature, result.SignatureLocation); err != nil {
			return nil, fail(models.PhaseSign, err)
		}
	}

	// Consumers verify the signature against this key
	if publicKey != nil {
		result.PublicKeyLocation = PublicKeyFilename(result.CatalogLocation)
		logrus.Infof("Writing public key to %s", result.PublicKeyLocation)
		if err := p.putBytes(ctx, publicKey, result.PublicKeyLocation); err != nil {
			return nil, fail(models.PhaseSign, err)
		}
	}

	logrus.Infof("Published %s %s (%s)", box.Name, box.Version, box.Provider)
	return result, nil
}

// Catalog fetches and decodes the catalog of a box name
func (p *Publisher) Catalog(ctx context.Context, name string) (*models.Catalog, error) {
	location := p.transport.Location(CatalogFilename(name))
	data, err := p.transport.Fetch(ctx, location)
	if err != nil {
		return nil, &models.PublishError{Phase: models.PhaseFetch, Box: name, Err: err}
	}

	c, err := catalog.Parse(data)
	if err != nil {
		return nil, &models.PublishError{Phase: models.PhaseMerge, Box: name, Err: err}
	}
	return c, nil
}

// fetchCatalog returns the catalog text at location, or nothing when there is
// no catalog yet
func (p *Publisher) fetchCatalog(ctx context.Context, location string) ([]byte, error) {
	logrus.Infof("Fetching catalog from %s", location)
	data, err := p.transport.Fetch(ctx, location)
	if err == nil {
		return data, nil
	}

	if transport.IsNotFound(err) {
		logrus.Infof("No catalog at %s, creating a new one", location)
		return nil, nil
	}

	if p.assumeNewCatalog && !transport.DetectsNotFound(p.transport.Kind()) {
		logrus.Warnf("Could not fetch catalog (%v), assuming it does not exist yet", err)
		return nil, nil
	}

	return nil, err
}

// putBytes stages data in a private file and puts it at location
func (p *Publisher) putBytes(ctx context.Context, data []byte, location string) error {
	staging, err := workspace.New(p.fs, "caryatid-*")
	if err != nil {
		return err
	}
	defer staging.Close()

	if err := staging.Write(data); err != nil {
		return err
	}

	return p.transport.Put(ctx, staging.Path(), location)
}

func validateBox(box Box) error {
	fields := []struct {
		name  string
		value string
	}{
		{"box name", box.Name},
		{"version", box.Version},
		{"provider", box.Provider},
		{"box path", box.Path},
	}

	for _, f := range fields {
		if f.value == "" {
			return models.NewConfigError("%s is required", f.name)
		}
	}

	for _, f := range fields[:3] {
		if strings.ContainsAny(f.value, `/\`) {
			return models.NewConfigError("%s %q must not contain path separators", f.name, f.value)
		}
	}

	return nil
}
