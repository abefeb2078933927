package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/dbcop/helper"
	"github.com/relloyd/dbcop/rdbms/shared"
)

// ConnectionExport is the document written by 'config connections export'.
type ConnectionExport struct {
	ExportDate       time.Time                  `json:"exportDate"`
	ExportedBy       string                     `json:"exportedBy"`
	IncludePasswords bool                       `json:"includePasswords"`
	Connections      []shared.ConnectionProfile `json:"connections"`
}

type ConnectionExportConfig struct {
	Store            ConnectionStore `errorTxt:"connection store" mandatory:"yes"`
	FileName         string          `errorTxt:"file" mandatory:"yes"`
	IncludePasswords bool
	Now              func() time.Time
	Out              io.Writer
}

type ConnectionImportConfig struct {
	Store    ConnectionStore `errorTxt:"connection store" mandatory:"yes"`
	FileName string          `errorTxt:"file" mandatory:"yes"`
	Force    bool
	Out      io.Writer
}

// ImportSummary counts what happened to each imported connection.
type ImportSummary struct {
	Imported int
	Skipped  int
	Invalid  int
}

// RunConnectionExport writes every profile to cfg.FileName as JSON.
// Passwords stay encrypted and are left out unless cfg.IncludePasswords is set.
// Encrypted passwords can only be read back on a machine holding the same secret.
func RunConnectionExport(cfg *ConnectionExportConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	profiles, err := cfg.Store.ListConnectionProfiles()
	if err != nil {
		return err
	}
	if !cfg.IncludePasswords {
		for i := range profiles {
			profiles[i].EncryptedPassword = ""
		}
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	doc := ConnectionExport{
		ExportDate:       now().UTC(),
		ExportedBy:       currentUser(),
		IncludePasswords: cfg.IncludePasswords,
		Connections:      profiles,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal connections")
	}
	if err = os.WriteFile(cfg.FileName, b, 0600); err != nil {
		return errors.Wrapf(err, "unable to write export file %q", cfg.FileName)
	}
	fmt.Fprintf(out(cfg.Out), "%v connection(s) exported to %q\n", len(profiles), cfg.FileName)
	return nil
}

// RunConnectionImport loads profiles from a JSON or YAML file.
// The file may hold an export document or a bare list of connections.
// Existing names, compared without case, are skipped unless cfg.Force is set.
// Invalid entries are reported and skipped.
func RunConnectionImport(cfg *ConnectionImportConfig) (*ImportSummary, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(cfg.FileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read import file %q", cfg.FileName)
	}
	profiles, err := parseConnectionImport(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse import file %q", cfg.FileName)
	}
	w := out(cfg.Out)
	sum := &ImportSummary{}
	seen := make(map[string]struct{})
	for _, p := range profiles {
		if _, dup := seen[p.Key()]; dup { // if the file repeats a name...
			fmt.Fprintf(w, "Skipping duplicate connection %q\n", p.Name)
			sum.Skipped++
			continue
		}
		seen[p.Key()] = struct{}{}
		if err := p.Validate(); err != nil {
			fmt.Fprintf(w, "Skipping invalid connection %q: %v\n", p.Name, err)
			sum.Invalid++
			continue
		}
		exists, err := cfg.Store.ConnectionExists(p.Name)
		if err != nil {
			return sum, err
		}
		if exists && !cfg.Force {
			fmt.Fprintf(w, "Skipping existing connection %q (use force to overwrite)\n", p.Name)
			sum.Skipped++
			continue
		}
		if err = cfg.Store.SetConnectionProfile(p); err != nil {
			return sum, err
		}
		sum.Imported++
	}
	fmt.Fprintf(w, "%v imported, %v skipped, %v invalid\n", sum.Imported, sum.Skipped, sum.Invalid)
	return sum, nil
}

// parseConnectionImport accepts JSON or YAML holding an export document or a bare list.
// Key matching is case-insensitive so Name and name both work.
func parseConnectionImport(raw []byte) ([]shared.ConnectionProfile, error) {
	j, err := yaml.YAMLToJSON(raw) // JSON is valid YAML so this handles both.
	if err != nil {
		return nil, err
	}
	j = bytes.TrimSpace(j)
	if len(j) > 0 && j[0] == '[' { // if we have a bare list...
		retval := make([]shared.ConnectionProfile, 0)
		if err := json.Unmarshal(j, &retval); err != nil {
			return nil, err
		}
		return retval, nil
	}
	doc := ConnectionExport{}
	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, err
	}
	return doc.Connections, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
