package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/helper"
	"github.com/xo/dburl"
)

// Decrypter turns an opaque password blob into plaintext.
type Decrypter interface {
	Decrypt(opaque string) (string, error)
}

// ConnectionProfile describes one SQL Server endpoint and its credentials.
// The password is only ever held encrypted.
type ConnectionProfile struct {
	Name              string `json:"name" yaml:"name" mapstructure:"name" errorTxt:"connection name" mandatory:"yes"`
	Server            string `json:"server" yaml:"server" mapstructure:"server" errorTxt:"server" mandatory:"yes"`
	UseWindowsAuth    bool   `json:"useWindowsAuth" yaml:"useWindowsAuth" mapstructure:"useWindowsAuth"`
	UserID            string `json:"userId" yaml:"userId" mapstructure:"userId"`
	EncryptedPassword string `json:"passwordEncrypted" yaml:"passwordEncrypted" mapstructure:"passwordEncrypted"`
}

// Key returns the case-insensitive lookup key for the profile name.
func (p ConnectionProfile) Key() string {
	return ProfileKey(p.Name)
}

// ProfileKey returns the lookup key for a profile name.
func ProfileKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the profile can be used to open a connection.
// SQL authentication needs both a user and a password.
func (p ConnectionProfile) Validate() error {
	if err := helper.ValidateStructIsPopulated(p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Server) == "" {
		return errors.New("please supply values for connection name, server")
	}
	if !p.UseWindowsAuth {
		missing := make([]string, 0, 2)
		if p.UserID == "" {
			missing = append(missing, "user")
		}
		if p.EncryptedPassword == "" {
			missing = append(missing, "password")
		}
		if len(missing) > 0 {
			return fmt.Errorf("connection %q uses SQL authentication: please supply values for %v", p.Name, strings.Join(missing, ", "))
		}
	}
	return nil
}

// Endpoint decrypts the password and returns an Endpoint for the given database.
func (p ConnectionProfile) Endpoint(d Decrypter, database string, timeout time.Duration) (Endpoint, error) {
	if err := p.Validate(); err != nil {
		return Endpoint{}, err
	}
	e := Endpoint{
		Server:         p.Server,
		Database:       database,
		UseWindowsAuth: p.UseWindowsAuth,
		Timeout:        timeout,
	}
	if !p.UseWindowsAuth { // if we need SQL credentials...
		pwd, err := d.Decrypt(p.EncryptedPassword)
		if err != nil {
			return Endpoint{}, errors.Wrapf(err, "unable to decrypt password for connection %q", p.Name)
		}
		if pwd == "" {
			return Endpoint{}, fmt.Errorf("connection %q has an empty password", p.Name)
		}
		e.UserID = p.UserID
		e.Password = pwd
	}
	return e, nil
}

// String pretty-prints the profile without its password.
func (p ConnectionProfile) String() string {
	auth := "windows"
	if !p.UseWindowsAuth {
		auth = fmt.Sprintf("sql (user %v)", p.UserID)
	}
	return fmt.Sprintf("  server = %v\n  auth = %v", p.Server, auth)
}

// ProfileFromDSN builds a profile from a sqlserver:// DSN.
// The password is returned separately in plaintext so the caller can encrypt it.
func ProfileFromDSN(name string, dsn string) (ConnectionProfile, string, error) {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return ConnectionProfile{}, "", errors.Wrap(err, "DSN could not be parsed")
	}
	switch strings.ToLower(u.OriginalScheme) {
	case "sqlserver", "mssql", "ms":
	default:
		return ConnectionProfile{}, "", fmt.Errorf("unsupported DSN scheme %q: use sqlserver://", u.OriginalScheme)
	}
	server := u.Hostname()
	if instance := strings.Trim(u.Path, "/"); instance != "" { // if there is a named instance...
		server = server + `\` + instance
	}
	if port := u.Port(); port != "" {
		server = server + "," + port
	}
	p := ConnectionProfile{Name: name, Server: server}
	var pwd string
	if u.User != nil && u.User.Username() != "" { // if SQL credentials were supplied...
		p.UserID = u.User.Username()
		pwd, _ = u.User.Password()
	} else {
		p.UseWindowsAuth = true
	}
	return p, pwd, nil
}

// RedactDSN returns the DSN with its password masked.
func RedactDSN(dsn string) string {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return "<unparsable DSN>"
	}
	return u.Redacted()
}
