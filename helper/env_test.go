package helper

import (
	"os"
	"testing"
)

func TestGetFlagEnvVarName(t *testing.T) {
	// Test 1
	expected := "DBCOP_LOG_LEVEL"
	got := GetFlagEnvVarName("log-level")
	if got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
	// Test 2
	expected = "DBCOP_CONN_PROD_EU"
	got = GetConnectionEnvVarName(" prod-eu ")
	if got != expected {
		t.Fatalf("expected %q; got %q", expected, got)
	}
}

func TestGetConnectionEnvVars(t *testing.T) {
	environ := []string{
		"HOME=/root",
		"DBCOP_CONN_PROD=sqlserver://u:p@prod/inst",
		"DBCOP_CONN_DEV=sqlserver://localhost",
		"DBCOP_CONN_EMPTY=",
		"DBCOP_CONN_=x",
		"DBCOP_LOG_LEVEL=debug",
	}
	m := GetConnectionEnvVars(environ)
	// Test 1 - only named, non-empty connections are returned.
	if len(m) != 2 {
		t.Fatalf("expected 2 connections; got %v", m)
	}
	// Test 2 - names are lower case and values are left alone.
	if m["prod"] != "sqlserver://u:p@prod/inst" {
		t.Fatalf("expected prod DSN; got %q", m["prod"])
	}
	keys := SortedKeys(m)
	if keys[0] != "dev" || keys[1] != "prod" {
		t.Fatalf("expected sorted keys [dev prod]; got %v", keys)
	}
}

func TestGetEnvVar(t *testing.T) {
	k := "DBCOP_TEST_GET_ENV_VAR"
	_ = os.Unsetenv(k)
	// Test 1 - mandatory missing value.
	if _, err := GetEnvVar(k, true); err == nil {
		t.Fatal("expected error for missing mandatory env var")
	}
	// Test 2 - optional missing value.
	if v, err := GetEnvVar(k, false); err != nil || v != "" {
		t.Fatalf("expected empty value and no error; got %q, %v", v, err)
	}
	// Test 3 - default applied.
	if v := ReadValueFromEnvWithDefault(k, "dflt"); v != "dflt" {
		t.Fatalf("expected %q; got %q", "dflt", v)
	}
	// Test 4 - value set.
	t.Setenv(k, "set")
	if v := ReadValueFromEnvWithDefault(k, "dflt"); v != "set" {
		t.Fatalf("expected %q; got %q", "set", v)
	}
}
