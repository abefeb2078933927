package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/rdbms/shared"
)

type ConnectionConfig struct {
	Store       ConnectionStore           `errorTxt:"connection store" mandatory:"yes"`
	Credentials config.CredentialProvider `errorTxt:"credential provider" mandatory:"yes"`
	LogicalName string                    `errorTxt:"connection name" mandatory:"yes"`
	Server      string
	UserID      string
	Password    string
	WindowsAuth bool
	Dsn         string // takes priority over Server, UserID and Password.
	Force       bool
	Out         io.Writer
}

type ConnectionRemoveConfig struct {
	Store       ConnectionStore `errorTxt:"connection store" mandatory:"yes"`
	LogicalName string          `errorTxt:"connection name" mandatory:"yes"`
	Out         io.Writer
}

type ConnectionListConfig struct {
	Store ConnectionStore `errorTxt:"connection store" mandatory:"yes"`
	Out   io.Writer
}

type ConnectionTestConfig struct {
	Connections ConnectionSource
	Dialer      shared.Dialer `errorTxt:"dialer" mandatory:"yes"`
	LogicalName string        `errorTxt:"connection name" mandatory:"yes"`
	Database    string        // defaults to master.
	Timeout     time.Duration // defaults to the source test timeout.
	Out         io.Writer
}

// RunConnectionAdd encrypts the password and saves the profile.
// It refuses to overwrite an existing connection, whatever its case, unless cfg.Force is set.
func RunConnectionAdd(cfg *ConnectionConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if strings.Contains(cfg.LogicalName, ".") {
		return fmt.Errorf("connection name cannot contain period characters '.' as they're used to split <connection>.<database>")
	}
	// Build the profile from the DSN or the individual values.
	p := shared.ConnectionProfile{
		Name:           cfg.LogicalName,
		Server:         cfg.Server,
		UseWindowsAuth: cfg.WindowsAuth,
		UserID:         cfg.UserID,
	}
	pwd := cfg.Password
	if cfg.Dsn != "" { // if the user supplied a DSN...
		var err error
		p, pwd, err = shared.ProfileFromDSN(cfg.LogicalName, cfg.Dsn)
		if err != nil {
			return errors.Wrap(err, "unable to create connection")
		}
	}
	if p.UseWindowsAuth {
		p.UserID = ""
		pwd = ""
	} else if p.UserID == "" || pwd == "" { // else SQL auth needs both...
		return fmt.Errorf("SQL authentication requires both a user and a password (or use windows authentication)")
	}
	enc, err := cfg.Credentials.Encrypt(pwd)
	if err != nil {
		return err
	}
	p.EncryptedPassword = enc
	if err = p.Validate(); err != nil {
		return err
	}
	// Check for an existing saved connection.
	exists, err := cfg.Store.ConnectionExists(p.Name)
	if err != nil {
		return err
	}
	if exists && !cfg.Force { // if the connection exists, but we are not allowed to overwrite it...
		return fmt.Errorf("connection %q exists, use force to update the connection or remove it first", p.Name)
	}
	if err = cfg.Store.SetConnectionProfile(p); err != nil {
		return fmt.Errorf("error writing connections config file after adding: %v", err)
	}
	fmt.Fprintf(out(cfg.Out), "Connection %q added\n", p.Name)
	return nil
}

func RunConnectionRemove(cfg *ConnectionRemoveConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	err := cfg.Store.DeleteConnectionProfile(cfg.LogicalName)
	if err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %v", cfg.LogicalName, err)
	}
	fmt.Fprintf(out(cfg.Out), "Connection %q removed\n", cfg.LogicalName)
	return nil
}

// RunConnectionList prints every profile without passwords.
func RunConnectionList(cfg *ConnectionListConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	profiles, err := cfg.Store.ListConnectionProfiles()
	if err != nil {
		return err
	}
	w := out(cfg.Out)
	if len(profiles) == 0 {
		fmt.Fprintln(w, "No connections configured")
		return nil
	}
	for _, p := range profiles {
		fmt.Fprintf(w, "%v:\n%v\n", p.Name, p)
	}
	return nil
}

// RunConnectionTest opens the connection and pings it.
func RunConnectionTest(ctx context.Context, cfg *ConnectionTestConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	db := cfg.Database
	if db == "" {
		db = constants.AdminDatabaseName
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = constants.SourceTestTimeoutSeconds * time.Second
	}
	e, err := cfg.Connections.Endpoint(cfg.LogicalName, db, timeout)
	if err != nil {
		return err
	}
	c, err := cfg.Dialer.Dial(ctx, e, timeout)
	if err != nil {
		return errors.Wrapf(err, "connection %q failed", cfg.LogicalName)
	}
	defer func() { _ = c.Close() }()
	if err = c.Ping(ctx); err != nil {
		return errors.Wrapf(err, "connection %q failed", cfg.LogicalName)
	}
	fmt.Fprintf(out(cfg.Out), "Connection %q to %v is working\n", cfg.LogicalName, e)
	return nil
}

func out(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
