package config

import (
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/rdbms/shared"
)

// GetConnectionProfile fetches the profile called name, ignoring case.
func (c *File) GetConnectionProfile(name string) (shared.ConnectionProfile, error) {
	p := shared.ConnectionProfile{}
	if err := c.Get(shared.ProfileKey(name), &p); err != nil {
		if IsNotFound(err) {
			return p, errors.Wrapf(err, "connection %q is not configured: use 'config connections add' to create it", name)
		}
		return p, err
	}
	return p, nil
}

// LoadConnection satisfies the action loaders.
func (c *File) LoadConnection(name string) (shared.ConnectionProfile, error) {
	return c.GetConnectionProfile(name)
}

// SetConnectionProfile validates and saves p under its case-insensitive key.
func (c *File) SetConnectionProfile(p shared.ConnectionProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.Set(p.Key(), p)
}

// ConnectionExists reports whether a profile called name exists, ignoring case.
func (c *File) ConnectionExists(name string) (bool, error) {
	return c.Exists(shared.ProfileKey(name))
}

// DeleteConnectionProfile removes the profile called name, ignoring case.
func (c *File) DeleteConnectionProfile(name string) error {
	return c.Delete(shared.ProfileKey(name))
}

// ListConnectionProfiles returns all profiles sorted by key.
func (c *File) ListConnectionProfiles() ([]shared.ConnectionProfile, error) {
	keys, err := c.GetAllKeys()
	if err != nil {
		return nil, err
	}
	retval := make([]shared.ConnectionProfile, 0, len(keys))
	for _, k := range keys {
		p := shared.ConnectionProfile{}
		if err := c.Get(k, &p); err != nil {
			return nil, err
		}
		retval = append(retval, p)
	}
	return retval, nil
}
