package signer

// Signer interface for signing catalog documents
type Signer interface {
	// SignDetached creates an armored detached signature of a catalog
	SignDetached(catalog []byte) ([]byte, error)

	// GetPublicKey returns the armored public key that verifies the signatures
	GetPublicKey() ([]byte, error)
}
