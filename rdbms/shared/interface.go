package shared

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../../mocks/mock_catalog.go -package=mocks github.com/relloyd/dbcop/rdbms/shared Catalog,Dialer

// Catalog abstracts the server catalog queries and DDL used before and around a sync.
type Catalog interface {
	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error
	// DatabaseExists reports whether a database called name exists on the server.
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	// KillSessions terminates every other session connected to database name.
	KillSessions(ctx context.Context, name string) error
	// ListDatabases returns user databases, excluding the system ones, sorted by name.
	ListDatabases(ctx context.Context) ([]string, error)
	Close() error
}

// Dialer opens Catalog connections.
type Dialer interface {
	Dial(ctx context.Context, e Endpoint, timeout time.Duration) (Catalog, error)
}
