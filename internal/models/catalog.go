package models

import "encoding/json"

// Catalog is the document describing every published version of one box
//
// Example:
//
//	{
//	    "name": "devops",
//	    "description": "This box contains Ubuntu 14.04.2 LTS 64-bit.",
//	    "versions": [{
//	        "version": "0.1.0",
//	        "providers": [{
//	            "name": "virtualbox",
//	            "url": "file:///srv/boxes/devops_0.1.0_virtualbox.box",
//	            "checksum_type": "sha1",
//	            "checksum": "d3597dccfdc6953d0a6eff4a9e1903f44f72ab94"
//	        }]
//	    }]
//	}
type Catalog struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Versions    []Version `json:"versions"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Version is one published version of a box
type Version struct {
	Version   string     `json:"version"`
	Providers []Provider `json:"providers"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Provider describes where to fetch the artifact built for one provider
type Provider struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ChecksumType string `json:"checksum_type"`
	Checksum     string `json:"checksum"`

	Extra map[string]json.RawMessage `json:"-"`
}

// BoxFact is the tuple recorded into a catalog by one publish
type BoxFact struct {
	Name         string
	Description  string
	Version      string
	Provider     string
	URL          string
	ChecksumType string
	Checksum     string
}
