package sqlpackage

import (
	"strings"
	"testing"
	"time"

	"github.com/relloyd/dbcop/rdbms/shared"
)

var (
	src = shared.Endpoint{Server: "src01", Database: "Orders", UserID: "sa", Password: "hunter2", Timeout: 30 * time.Second}
	tgt = shared.Endpoint{Server: ".", Database: "Orders", UseWindowsAuth: true, Timeout: 30 * time.Second}
)

func has(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestExport(t *testing.T) {
	c := Export(src, "/tmp/x.bacpac")
	// Test 1 - action first, then connection, file and timeout.
	if c.Args[0] != "/Action:Export" {
		t.Fatalf("expected /Action:Export first; got %q", c.Args[0])
	}
	expected := "/SourceConnectionString:" + src.ConnectionString()
	if c.Args[1] != expected {
		t.Fatalf("expected %q; got %q", expected, c.Args[1])
	}
	if !has(c.Args, "/TargetFile:/tmp/x.bacpac") || !has(c.Args, "/p:CommandTimeout=300") {
		t.Fatalf("missing file or timeout in %v", c.Args)
	}
	// Test 2 - the redacted form never includes the password.
	if strings.Contains(c.String(), "hunter2") {
		t.Fatalf("expected password to be redacted; got %q", c.String())
	}
	if !strings.Contains(c.String(), "Password=***") {
		t.Fatalf("expected masked password; got %q", c.String())
	}
}

func TestImport(t *testing.T) {
	c := Import("/tmp/x.bacpac", tgt)
	if c.Action != ActionImport || c.Args[1] != "/SourceFile:/tmp/x.bacpac" {
		t.Fatalf("unexpected import %v", c.Args)
	}
	if !has(c.Args, "/TargetConnectionString:"+tgt.ConnectionString()) {
		t.Fatalf("missing target connection string in %v", c.Args)
	}
}

func TestExtract(t *testing.T) {
	// Test 1 - schema only by default.
	c := Extract(src, "/tmp/x.dacpac", false)
	for _, a := range c.Args {
		if strings.HasPrefix(a, "/p:ExtractAllTableData") {
			t.Fatalf("expected no ExtractAllTableData; got %v", c.Args)
		}
	}
	// Test 2 - data on request.
	c = Extract(src, "/tmp/x.dacpac", true)
	if !has(c.Args, "/p:ExtractAllTableData=True") {
		t.Fatalf("expected ExtractAllTableData=True in %v", c.Args)
	}
}

func TestPublishSafe(t *testing.T) {
	c := Publish("/tmp/x.dacpac", tgt, SafePublishOptions())
	for _, want := range []string{
		"/p:BlockOnPossibleDataLoss=True",
		"/p:DropObjectsNotInSource=False",
		"/p:GenerateSmartDefaults=True",
		"/p:CreateNewDatabase=False",
		"/p:AllowIncompatiblePlatform=True",
	} {
		if !has(c.Args, want) {
			t.Fatalf("expected %q in %v", want, c.Args)
		}
	}
}

func TestPublishForce(t *testing.T) {
	c := Publish("/tmp/x.dacpac", tgt, ForcePublishOptions())
	for _, want := range []string{
		"/p:BlockOnPossibleDataLoss=False",
		"/p:DropObjectsNotInSource=True",
		"/p:CreateNewDatabase=False",
	} {
		if !has(c.Args, want) {
			t.Fatalf("expected %q in %v", want, c.Args)
		}
	}
	for _, a := range c.Args {
		if strings.HasPrefix(a, "/p:GenerateSmartDefaults") {
			t.Fatalf("expected force publish to leave GenerateSmartDefaults unset; got %v", c.Args)
		}
	}
}
