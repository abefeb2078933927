package actions

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/rdbms/shared"
)

// EnvConnections loads connections from DBCOP_CONN_<NAME> environment variables holding sqlserver:// DSNs.
// Passwords are encrypted with a key that only lives as long as the process.
type EnvConnections struct {
	dsns        map[string]string
	credentials *config.LocalKeyProvider
}

// NewEnvConnections reads connection variables from environ, which is usually os.Environ().
func NewEnvConnections(environ []string) (*EnvConnections, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "unable to create an in-memory credential key")
	}
	return &EnvConnections{
		dsns:        helper.GetConnectionEnvVars(environ),
		credentials: config.NewLocalKeyProviderWithKey(key),
	}, nil
}

// NewEnvConnectionSource is a ConnectionSource over the process environment.
func NewEnvConnectionSource() (ConnectionSource, error) {
	e, err := NewEnvConnections(os.Environ())
	if err != nil {
		return ConnectionSource{}, err
	}
	return ConnectionSource{Loader: e, Credentials: e.Credentials()}, nil
}

// Credentials decrypts passwords of profiles returned by LoadConnection.
func (e *EnvConnections) Credentials() shared.Decrypter {
	return e.credentials
}

func (e *EnvConnections) LoadConnection(connectionName string) (shared.ConnectionProfile, error) {
	dsn, ok := e.dsns[shared.ProfileKey(connectionName)]
	if !ok {
		return shared.ConnectionProfile{}, fmt.Errorf("connection %q not found: set environment variable %v",
			connectionName, helper.GetConnectionEnvVarName(connectionName))
	}
	p, pwd, err := shared.ProfileFromDSN(connectionName, dsn)
	if err != nil {
		return shared.ConnectionProfile{}, errors.Wrapf(err, "bad DSN in %v (%v)",
			helper.GetConnectionEnvVarName(connectionName), shared.RedactDSN(dsn))
	}
	if p.EncryptedPassword, err = e.credentials.Encrypt(pwd); err != nil {
		return shared.ConnectionProfile{}, err
	}
	return p, p.Validate()
}

// Names returns the configured connection names in order.
func (e *EnvConnections) Names() []string {
	return helper.SortedKeys(e.dsns)
}
