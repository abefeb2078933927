package actions

import (
	"context"
	"time"

	"github.com/relloyd/dbcop/rdbms/shared"
)

type ConnectionLoader interface {
	LoadConnection(connectionName string) (shared.ConnectionProfile, error)
}

type ConnectionStore interface {
	ConnectionLoader
	SetConnectionProfile(p shared.ConnectionProfile) error
	ConnectionExists(connectionName string) (bool, error)
	DeleteConnectionProfile(connectionName string) error
	ListConnectionProfiles() ([]shared.ConnectionProfile, error)
}

type ToolLocator interface {
	Locate(ctx context.Context, explicit string) (string, error)
}

// ConnectionSource loads profiles and decrypts their passwords.
type ConnectionSource struct {
	Loader      ConnectionLoader
	Credentials shared.Decrypter
}

// Endpoint returns the endpoint for database on connectionName.
func (c ConnectionSource) Endpoint(connectionName string, database string, timeout time.Duration) (shared.Endpoint, error) {
	p, err := c.Loader.LoadConnection(connectionName)
	if err != nil {
		return shared.Endpoint{}, err
	}
	return p.Endpoint(c.Credentials, database, timeout)
}
