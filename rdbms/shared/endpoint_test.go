package shared

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseServer(t *testing.T) {
	cases := []struct {
		in       string
		host     string
		instance string
		port     int
	}{
		{`.`, ".", "", 0},
		{`.\SQLEXPRESS`, ".", "SQLEXPRESS", 0},
		{`(local)`, "(local)", "", 0},
		{` db01\Inst `, "db01", "Inst", 0},
		{`db01,1433`, "db01", "", 1433},
		{`tcp:db01\Inst,1500`, "db01", "Inst", 1500},
		{`10.0.0.5:1433`, "10.0.0.5", "", 1433},
		{`::1`, "::1", "", 0},
		{`[fe80::1]`, "fe80::1", "", 0},
	}
	for _, c := range cases {
		a := ParseServer(c.in)
		if a.Host != c.host || a.Instance != c.instance || a.Port != c.port {
			t.Fatalf("ParseServer(%q): expected %v/%v/%v; got %+v", c.in, c.host, c.instance, c.port, a)
		}
	}
}

func TestEndpointConnectionString(t *testing.T) {
	// Test 1 - SQL auth.
	e := Endpoint{Server: `db01\Inst`, Database: "Orders", UserID: "sa", Password: "pa;ss", Timeout: 30 * time.Second}
	expected := `Server=db01\Inst;Database=Orders;User Id=sa;Password="pa;ss";TrustServerCertificate=true;Encrypt=false;Connection Timeout=30;`
	if got := e.ConnectionString(); got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
	// Test 2 - redaction.
	if got := e.RedactedConnectionString(); strings.Contains(got, "pa;ss") || !strings.Contains(got, "Password=***;") {
		t.Fatalf("expected redacted password; got %q", got)
	}
	// Test 3 - integrated security, default timeout.
	w := Endpoint{Server: ".", Database: "master", UseWindowsAuth: true}
	expected = `Server=.;Database=master;Integrated Security=true;TrustServerCertificate=true;Encrypt=false;Connection Timeout=30;`
	if got := w.ConnectionString(); got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
	// Test 4 - values with both quote types are escaped.
	if got := quoteConnectionValue(`a"b'c`); got != `"a""b'c"` {
		t.Fatalf("unexpected quoting %q", got)
	}
}

func TestEndpointURL(t *testing.T) {
	e := Endpoint{Server: `.\SQLEXPRESS`, Database: "Orders", UserID: "sa", Password: "p@ss", Timeout: 5 * time.Second}
	u, err := url.Parse(e.URL())
	if err != nil {
		t.Fatal(err)
	}
	// Test 1 - local shorthand maps to localhost and the instance becomes the path.
	if u.Scheme != "sqlserver" || u.Host != "localhost" || u.Path != "/SQLEXPRESS" {
		t.Fatalf("unexpected URL %v", u)
	}
	// Test 2 - database and timeout are query parameters.
	q := u.Query()
	if q.Get("database") != "Orders" || q.Get("connection timeout") != "5" {
		t.Fatalf("unexpected query %v", q)
	}
	if pwd, _ := u.User.Password(); pwd != "p@ss" {
		t.Fatalf("expected password in URL; got %q", pwd)
	}
	// Test 3 - redacted URL hides the password.
	if strings.Contains(e.RedactedURL(), "p%40ss") || strings.Contains(e.RedactedURL(), "p@ss") {
		t.Fatalf("expected redacted URL; got %q", e.RedactedURL())
	}
	// Test 4 - ports are kept.
	p := Endpoint{Server: "db01,1444", UseWindowsAuth: true}
	u, _ = url.Parse(p.URL())
	if u.Host != "db01:1444" || u.User != nil {
		t.Fatalf("unexpected URL %v", u)
	}
}
