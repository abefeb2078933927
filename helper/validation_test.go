package helper

import (
	"strings"
	"testing"
)

type nestedCfg struct {
	Server string `errorTxt:"server" mandatory:"yes"`
}

type testCfg struct {
	Name     string            `errorTxt:"name" mandatory:"yes"`
	Optional string            `errorTxt:"optional"`
	Port     int               `errorTxt:"port" mandatory:"yes"`
	Nested   nestedCfg         `errorTxt:"nested"`
	Args     []string          `errorTxt:"args" mandatory:"yes"`
	Labels   map[string]string `errorTxt:"labels"`
	hidden   string
}

func TestValidateStructIsPopulated(t *testing.T) {
	// Test 1 - all mandatory fields missing are reported, in field order.
	err := ValidateStructIsPopulated(&testCfg{})
	if err == nil {
		t.Fatal("expected error for empty struct")
	}
	expected := "please supply values for name, port, server, args"
	if err.Error() != expected {
		t.Fatalf("expected %q; got %q", expected, err.Error())
	}
	// Test 2 - a populated struct passes.
	c := testCfg{Name: "a", Port: 1, Nested: nestedCfg{Server: "s"}, Args: []string{"x"}, hidden: ""}
	if err := ValidateStructIsPopulated(c); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	// Test 3 - nil pointer does not panic.
	var p *testCfg
	if err := ValidateStructIsPopulated(p); err != nil {
		t.Fatalf("expected nil pointer to be ignored; got %v", err)
	}
	// Test 4 - a single missing field.
	c.Name = ""
	err = ValidateStructIsPopulated(c)
	if err == nil || !strings.HasSuffix(err.Error(), "name") {
		t.Fatalf("expected error ending in name; got %v", err)
	}
}
