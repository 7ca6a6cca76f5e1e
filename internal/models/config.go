package models

// PublishConfig contains configuration for publishing a box
type PublishConfig struct {
	// Box
	Name        string
	Description string
	Version     string
	Provider    string // Inferred from the box when empty
	BoxPath     string

	// Destination
	Backend     string // local, scp or s3
	Destination string
	BaseURL     string // Public URL prefix recorded in the catalog instead of the backend URL

	// Object storage credentials
	AccessKey string
	SecretKey string

	// External commands for the scp backend
	SCPCommand string
	SSHCommand string

	// Checksums
	ChecksumType string

	// Content type sent for the box upload
	ContentType string

	// Signing
	GPGKeyPath    string
	GPGPassphrase string

	// Catalog handling
	Lock             bool // Serialize catalog updates where the backend supports it
	AssumeNewCatalog bool // Treat an unreadable catalog as absent on backends without not-found
}
