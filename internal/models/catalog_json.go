package models

import (
	"encoding/json"
)

// Catalogs written by other tools may carry fields this package does not model
// (per-version descriptions, status flags). They are kept verbatim so that a
// publish never drops them.

var (
	catalogFields  = []string{"name", "description", "versions"}
	versionFields  = []string{"version", "providers"}
	providerFields = []string{"name", "url", "checksum_type", "checksum"}
)

// UnmarshalJSON implements json.Unmarshaler
func (c *Catalog) UnmarshalJSON(data []byte) error {
	type plain Catalog
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, catalogFields)
	if err != nil {
		return err
	}
	*c = Catalog(p)
	c.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler
func (c Catalog) MarshalJSON() ([]byte, error) {
	type plain Catalog
	p := plain(c)
	if p.Versions == nil {
		p.Versions = []Version{}
	}
	return withUnknownFields(p, c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Version) UnmarshalJSON(data []byte) error {
	type plain Version
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, versionFields)
	if err != nil {
		return err
	}
	*v = Version(p)
	v.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler
func (v Version) MarshalJSON() ([]byte, error) {
	type plain Version
	p := plain(v)
	if p.Providers == nil {
		p.Providers = []Provider{}
	}
	return withUnknownFields(p, v.Extra)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Provider) UnmarshalJSON(data []byte) error {
	type plain Provider
	var pp plain
	if err := json.Unmarshal(data, &pp); err != nil {
		return err
	}
	extra, err := unknownFields(data, providerFields)
	if err != nil {
		return err
	}
	*p = Provider(pp)
	p.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler
func (p Provider) MarshalJSON() ([]byte, error) {
	type plain Provider
	return withUnknownFields(plain(p), p.Extra)
}

func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func withUnknownFields(v interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}
