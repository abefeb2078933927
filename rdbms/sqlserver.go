package rdbms

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/rdbms/shared"
)

const (
	sqlDatabaseExists = "SELECT COUNT(*) FROM sys.databases WHERE name = @dbName"
	sqlKillSessions   = `DECLARE @sql NVARCHAR(MAX) = N'';
SELECT @sql = @sql + N'KILL ' + CAST(session_id AS NVARCHAR(10)) + N'; '
FROM sys.dm_exec_sessions
WHERE database_id = DB_ID(@dbName) AND session_id <> @@SPID;
EXEC sp_executesql @sql;`
	sqlListDatabases = "SELECT name FROM sys.databases WHERE database_id > @minId ORDER BY name"
)

// SqlServerDialer opens catalog connections using go-mssqldb.
type SqlServerDialer struct {
	Log logger.Logger
}

// NewSqlServerDialer returns a Dialer for SQL Server.
func NewSqlServerDialer(log logger.Logger) *SqlServerDialer {
	return &SqlServerDialer{Log: log}
}

// Dial opens a pool for e and pings it within timeout.
func (d *SqlServerDialer) Dial(ctx context.Context, e shared.Endpoint, timeout time.Duration) (shared.Catalog, error) {
	e = e.WithTimeout(timeout)
	d.Log.Debug("opening connection ", e.RedactedURL()) // don't log password details!
	db, err := sql.Open(constants.ConnectionTypeSqlServer, e.URL())
	if err != nil {
		return nil, errors.Wrapf(err, "error opening connection to %v", e)
	}
	db.SetMaxOpenConns(1)
	c := &sqlServerCatalog{db: db, log: d.Log, timeout: timeout}
	if err = c.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

type sqlServerCatalog struct {
	db      *sql.DB
	log     logger.Logger
	timeout time.Duration
}

// bounded applies the per-operation timeout on top of ctx.
func (c *sqlServerCatalog) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *sqlServerCatalog) Ping(ctx context.Context) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "error connecting")
	}
	return nil
}

func (c *sqlServerCatalog) DatabaseExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	var count int
	if err := c.db.QueryRowContext(ctx, sqlDatabaseExists, sql.Named("dbName", name)).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "error checking if database %q exists", name)
	}
	return count > 0, nil
}

func (c *sqlServerCatalog) CreateDatabase(ctx context.Context, name string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	c.log.Debug("creating database ", name)
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %v", QuoteIdentifier(name))); err != nil {
		return errors.Wrapf(err, "error creating database %q", name)
	}
	return nil
}

func (c *sqlServerCatalog) DropDatabase(ctx context.Context, name string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	c.log.Debug("dropping database ", name)
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE %v", QuoteIdentifier(name))); err != nil {
		return errors.Wrapf(err, "error dropping database %q", name)
	}
	return nil
}

func (c *sqlServerCatalog) KillSessions(ctx context.Context, name string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(ctx, sqlKillSessions, sql.Named("dbName", name)); err != nil {
		return errors.Wrapf(err, "error terminating sessions on database %q", name)
	}
	return nil
}

func (c *sqlServerCatalog) ListDatabases(ctx context.Context) ([]string, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	rows, err := c.db.QueryContext(ctx, sqlListDatabases, sql.Named("minId", constants.ListDatabasesMinDatabaseID))
	if err != nil {
		return nil, errors.Wrap(err, "error listing databases")
	}
	defer rows.Close()
	retval := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, "error reading database name")
		}
		retval = append(retval, n)
	}
	return retval, errors.Wrap(rows.Err(), "error listing databases")
}

func (c *sqlServerCatalog) Close() error {
	return c.db.Close()
}

// QuoteIdentifier wraps name in brackets, escaping any closing bracket.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
