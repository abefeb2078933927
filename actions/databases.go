package actions

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/rdbms/shared"
)

type ListDatabasesConfig struct {
	Connections ConnectionSource
	Dialer      shared.Dialer `errorTxt:"dialer" mandatory:"yes"`
	LogicalName string        `errorTxt:"connection name" mandatory:"yes"`
	Timeout     time.Duration
	Out         io.Writer
}

// RunListDatabases prints the user databases on a connection, one per line.
func RunListDatabases(ctx context.Context, cfg *ListDatabasesConfig) ([]string, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = constants.AdminTimeoutSeconds * time.Second
	}
	e, err := cfg.Connections.Endpoint(cfg.LogicalName, constants.AdminDatabaseName, timeout)
	if err != nil {
		return nil, err
	}
	c, err := cfg.Dialer.Dial(ctx, e, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %q", cfg.LogicalName)
	}
	defer func() { _ = c.Close() }()
	dbs, err := c.ListDatabases(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list databases on %q", cfg.LogicalName)
	}
	w := out(cfg.Out)
	for _, db := range dbs {
		fmt.Fprintln(w, db)
	}
	return dbs, nil
}
