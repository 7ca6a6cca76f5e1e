package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// CatalogSignatureHash is the digest used for catalog signatures
const CatalogSignatureHash = crypto.SHA256

// GPGSigner signs catalogs with an OpenPGP private key
type GPGSigner struct {
	entity *openpgp.Entity
	now    func() time.Time
}

// NewGPGSigner creates a new GPG signer from a private key file, armored or
// binary. The first key in the file that holds private material is used.
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	entity, err := readPrivateEntity(keyFile)
	if err != nil {
		return nil, err
	}

	if err := decryptEntity(entity, passphrase); err != nil {
		return nil, err
	}

	s := &GPGSigner{entity: entity, now: time.Now}
	if _, ok := entity.SigningKey(s.now()); !ok {
		return nil, fmt.Errorf("key %s has no valid signing key", s.KeyID())
	}
	return s, nil
}

func readPrivateEntity(r io.ReadSeeker) (*openpgp.Entity, error) {
	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		// Try as binary key
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
		entityList, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}
	for _, entity := range entityList {
		if entity.PrivateKey != nil {
			return entity, nil
		}
	}
	return nil, fmt.Errorf("key file contains no private key")
}

func decryptEntity(entity *openpgp.Entity, passphrase string) error {
	if passphrase == "" {
		if entity.PrivateKey.Encrypted {
			return fmt.Errorf("key is encrypted but no passphrase provided")
		}
		return nil
	}

	if entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return fmt.Errorf("failed to decrypt subkey: %w", err)
			}
		}
	}
	return nil
}

// KeyID returns the fingerprint of the signing key in hex
func (s *GPGSigner) KeyID() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// SignDetached creates the armored detached signature of a catalog document,
// published next to it as {name}.json.asc
func (s *GPGSigner) SignDetached(catalog []byte) ([]byte, error) {
	var buf bytes.Buffer

	config := &packet.Config{
		DefaultHash: CatalogSignatureHash,
		Time:        s.now,
	}
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(catalog), config); err != nil {
		return nil, fmt.Errorf("failed to sign catalog with key %s: %w", s.KeyID(), err)
	}

	return buf.Bytes(), nil
}

// GetPublicKey returns the public key in armored format, published as
// {name}.json.pub so catalog consumers can verify the signature
func (s *GPGSigner) GetPublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}

	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
