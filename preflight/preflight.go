package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/rdbms/shared"
)

// Reason identifies the preflight step that failed.
type Reason string

const (
	ReasonSourceUnreachable          Reason = "SourceUnreachable"
	ReasonTargetServerUnreachable    Reason = "TargetServerUnreachable"
	ReasonTargetDatabaseLookupFailed Reason = "TargetDatabaseLookupFailed"
	ReasonTargetDatabaseDropFailed   Reason = "TargetDatabaseDropFailed"
	ReasonTargetDatabaseCreateFailed Reason = "TargetDatabaseCreateFailed"
)

// Failure is a preflight error with the step that caused it.
type Failure struct {
	Reason   Reason
	Server   string
	Database string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%v (server %q, database %q): %v", f.Reason, f.Server, f.Database, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Plan is what preflight needs to know about a sync.
// Source.Database and Target.Database name the databases to sync.
type Plan struct {
	Source           shared.Endpoint
	Target           shared.Endpoint
	RecreateExisting bool // drop and create the target database if it exists.
}

// Report records what preflight did to the target.
type Report struct {
	TargetExisted bool  `json:"targetExisted"`
	Dropped       bool  `json:"dropped"`
	Created       bool  `json:"created"`
	KillWarning   error `json:"-"`
}

// Checker verifies connectivity and prepares the target database.
type Checker struct {
	Log           logger.Logger
	Dialer        shared.Dialer
	SourceTimeout time.Duration
	AdminTimeout  time.Duration
}

// NewChecker returns a Checker with the default timeouts.
func NewChecker(log logger.Logger, d shared.Dialer) *Checker {
	return &Checker{
		Log:           log,
		Dialer:        d,
		SourceTimeout: constants.SourceTestTimeoutSeconds * time.Second,
		AdminTimeout:  constants.AdminTimeoutSeconds * time.Second,
	}
}

// Run checks the source, connects to the target server's admin database and makes sure the target database exists.
// It stops at the first failure and returns a *Failure naming the step.
// If ctx is cancelled the error wraps ctx.Err() instead.
func (c *Checker) Run(ctx context.Context, p Plan) (*Report, error) {
	rpt := &Report{}
	// 1. Source.
	if err := ctx.Err(); err != nil {
		return rpt, errors.Wrap(err, "preflight cancelled")
	}
	c.Log.Info("testing source connection to ", p.Source)
	src, err := c.Dialer.Dial(ctx, p.Source, c.SourceTimeout)
	if err != nil {
		return rpt, c.fail(ctx, ReasonSourceUnreachable, p.Source, err)
	}
	if err = src.Close(); err != nil {
		c.Log.Debug("error closing source test connection: ", err)
	}
	// 2. Target server.
	if err := ctx.Err(); err != nil {
		return rpt, errors.Wrap(err, "preflight cancelled")
	}
	admin := p.Target.WithDatabase(constants.AdminDatabaseName)
	c.Log.Info("testing target server connection to ", admin)
	cat, err := c.Dialer.Dial(ctx, admin, c.AdminTimeout)
	if err != nil {
		return rpt, c.fail(ctx, ReasonTargetServerUnreachable, p.Target, err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			c.Log.Debug("error closing target admin connection: ", err)
		}
	}()
	// 3. Does the target database exist?
	name := p.Target.Database
	if rpt.TargetExisted, err = cat.DatabaseExists(ctx, name); err != nil {
		return rpt, c.fail(ctx, ReasonTargetDatabaseLookupFailed, p.Target, err)
	}
	// 4. Prepare it.
	if rpt.TargetExisted && !p.RecreateExisting { // if we must keep what is there...
		c.Log.Info("target database ", name, " exists and will be left in place")
		return rpt, nil
	}
	if rpt.TargetExisted { // if we must replace it...
		if err := ctx.Err(); err != nil {
			return rpt, errors.Wrap(err, "preflight cancelled")
		}
		c.Log.Warn("target database ", name, " exists and will be dropped and recreated")
		if err = cat.KillSessions(ctx, name); err != nil { // if other sessions may still be connected...
			rpt.KillWarning = err
			c.Log.Warn("unable to terminate sessions on ", name, ", trying to drop anyway: ", err)
		}
		if err = cat.DropDatabase(ctx, name); err != nil {
			return rpt, c.fail(ctx, ReasonTargetDatabaseDropFailed, p.Target, err)
		}
		rpt.Dropped = true
	}
	if err := ctx.Err(); err != nil {
		return rpt, errors.Wrap(err, "preflight cancelled")
	}
	c.Log.Info("creating target database ", name)
	if err = cat.CreateDatabase(ctx, name); err != nil {
		return rpt, c.fail(ctx, ReasonTargetDatabaseCreateFailed, p.Target, err)
	}
	rpt.Created = true
	return rpt, nil
}

// fail builds a Failure unless the error was caused by cancellation.
func (c *Checker) fail(ctx context.Context, r Reason, e shared.Endpoint, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrapf(ctxErr, "preflight cancelled during %v check", r)
	}
	f := &Failure{Reason: r, Server: e.Server, Database: e.Database, Err: err}
	c.Log.Error(f)
	return f
}
