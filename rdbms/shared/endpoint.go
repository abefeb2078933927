package shared

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const redactedPassword = "***"

// Endpoint is a ConnectionProfile with its password decrypted, bound to one database.
// Build it just before use and do not persist it.
type Endpoint struct {
	Server         string
	Database       string
	UseWindowsAuth bool
	UserID         string
	Password       string
	Timeout        time.Duration
}

// WithDatabase returns a copy of e that targets database.
func (e Endpoint) WithDatabase(database string) Endpoint {
	e.Database = database
	return e
}

// WithTimeout returns a copy of e that uses the given connection timeout.
func (e Endpoint) WithTimeout(timeout time.Duration) Endpoint {
	e.Timeout = timeout
	return e
}

// ConnectionString renders the ADO.NET style connection string SqlPackage expects.
func (e Endpoint) ConnectionString() string {
	return e.connectionString(e.Password)
}

// RedactedConnectionString is ConnectionString with the password masked, for logging.
func (e Endpoint) RedactedConnectionString() string {
	return e.connectionString(redactedPassword)
}

func (e Endpoint) connectionString(pwd string) string {
	b := strings.Builder{}
	writePair(&b, "Server", e.Server)
	if e.Database != "" {
		writePair(&b, "Database", e.Database)
	}
	if e.UseWindowsAuth {
		writePair(&b, "Integrated Security", "true")
	} else {
		writePair(&b, "User Id", e.UserID)
		writePair(&b, "Password", pwd)
	}
	writePair(&b, "TrustServerCertificate", "true")
	writePair(&b, "Encrypt", "false")
	writePair(&b, "Connection Timeout", strconv.Itoa(e.timeoutSeconds()))
	return b.String()
}

func writePair(b *strings.Builder, k string, v string) {
	b.WriteString(k)
	b.WriteString("=")
	b.WriteString(quoteConnectionValue(v))
	b.WriteString(";")
}

// quoteConnectionValue quotes v when it would otherwise break the key=value; grammar.
func quoteConnectionValue(v string) string {
	if v == "" {
		return v
	}
	needsQuote := strings.ContainsAny(v, `;="'{}`) || strings.TrimSpace(v) != v
	if !needsQuote {
		return v
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, `'`) {
		return `'` + v + `'`
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func (e Endpoint) timeoutSeconds() int {
	s := int(e.Timeout / time.Second)
	if s <= 0 {
		s = 30
	}
	return s
}

// URL renders the sqlserver:// DSN understood by go-mssqldb.
func (e Endpoint) URL() string {
	return e.url(e.Password).String()
}

// RedactedURL is URL with the password masked, for logging.
func (e Endpoint) RedactedURL() string {
	return e.url(redactedPassword).String()
}

func (e Endpoint) url(pwd string) *url.URL {
	a := ParseServer(e.Server)
	host := a.DialHost()
	if a.Port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(a.Port))
	} else if strings.Contains(host, ":") { // if this is a bare IPv6 address...
		host = "[" + host + "]"
	}
	u := &url.URL{Scheme: "sqlserver", Host: host}
	if a.Instance != "" {
		u.Path = "/" + a.Instance
	}
	if !e.UseWindowsAuth {
		u.User = url.UserPassword(e.UserID, pwd)
	}
	q := url.Values{}
	if e.Database != "" {
		q.Set("database", e.Database)
	}
	q.Set("connection timeout", strconv.Itoa(e.timeoutSeconds()))
	q.Set("dial timeout", strconv.Itoa(e.timeoutSeconds()))
	q.Set("encrypt", "disable")
	q.Set("TrustServerCertificate", "true")
	q.Set("app name", "dbcop")
	u.RawQuery = q.Encode()
	return u
}

// String describes the endpoint without credentials.
func (e Endpoint) String() string {
	if e.Database == "" {
		return e.Server
	}
	return fmt.Sprintf("%v/%v", e.Server, e.Database)
}
