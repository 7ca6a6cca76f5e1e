// Package catalog reads, merges and writes box catalog documents.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/ralt/caryatid/internal/models"
)

// DecodeError is returned when catalog text is not a valid catalog document
type DecodeError struct {
	Text string
	Err  error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode catalog text:\n%s\nbecause of error '%v'", e.Text, e.Err)
}

// Unwrap returns the wrapped error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Parse decodes catalog text. Empty text is the empty catalog.
func Parse(text []byte) (*models.Catalog, error) {
	c := &models.Catalog{}
	if len(text) == 0 {
		return c, nil
	}

	if err := json.Unmarshal(text, c); err != nil {
		return nil, &DecodeError{Text: string(text), Err: err}
	}
	return c, nil
}

// Encode serializes a catalog. Versions and providers are always emitted as arrays.
func Encode(c *models.Catalog) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return append(data, '\n'), nil
}

// Upsert parses text, records fact into it and returns the encoded result.
// It performs no I/O.
func Upsert(text []byte, fact models.BoxFact) ([]byte, error) {
	c, err := Parse(text)
	if err != nil {
		return nil, err
	}

	AddBox(c, fact)

	return Encode(c)
}

// AddBox records fact into c.
//
// Name and description are overwritten. The version entry is created when
// missing; when a corrupted document holds the version more than once the
// last entry is updated. Any provider entry with the same name is removed and
// the new one appended, so the provider moves to the end of its list.
func AddBox(c *models.Catalog, fact models.BoxFact) {
	c.Name = fact.Name
	c.Description = fact.Description

	v := FindVersion(c, fact.Version)
	if v == nil {
		c.Versions = append(c.Versions, models.Version{
			Version:   fact.Version,
			Providers: []models.Provider{},
		})
		v = &c.Versions[len(c.Versions)-1]
	}

	providers := make([]models.Provider, 0, len(v.Providers)+1)
	for _, p := range v.Providers {
		if p.Name != fact.Provider {
			providers = append(providers, p)
		}
	}
	v.Providers = append(providers, models.Provider{
		Name:         fact.Provider,
		URL:          fact.URL,
		ChecksumType: fact.ChecksumType,
		Checksum:     fact.Checksum,
	})
}

// FindVersion returns the last entry of c for version, or nil
func FindVersion(c *models.Catalog, version string) *models.Version {
	var found *models.Version
	for i := range c.Versions {
		if c.Versions[i].Version == version {
			found = &c.Versions[i]
		}
	}
	return found
}
