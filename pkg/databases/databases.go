// Package databases provides the read-only reference table of E-utility
// database codes. The table is embedded in the binary and decoded once on
// first use; it is never mutated afterwards.
package databases

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed databases.yaml
var tableYAML []byte

// Database describes one E-utility database.
type Database struct {
	// Code is the E-utility database name passed as the db parameter (e.g. "pubmed").
	Code string `yaml:"code"`

	// Name is the display name of the Entrez database (e.g. "PubMed").
	Name string `yaml:"name"`

	// UID describes what the database's unique identifiers mean (e.g. "PMID").
	UID string `yaml:"uid"`
}

// Table is an immutable lookup of databases by code.
type Table struct {
	byCode map[string]Database
	codes  []string
}

var (
	defaultTable *Table
	defaultErr   error
	loadOnce     sync.Once
)

// Default returns the embedded table. It panics if the embedded data is
// malformed, which can only happen on a broken build.
func Default() *Table {
	loadOnce.Do(func() {
		defaultTable, defaultErr = Parse(tableYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("databases: embedded table: %v", defaultErr))
	}
	return defaultTable
}

// Parse decodes a YAML document of the form `databases: [{code, name, uid}]`.
func Parse(data []byte) (*Table, error) {
	var doc struct {
		Databases []Database `yaml:"databases"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode database table: %w", err)
	}

	t := &Table{byCode: make(map[string]Database, len(doc.Databases))}
	for _, db := range doc.Databases {
		if db.Code == "" {
			return nil, fmt.Errorf("database entry without code (name %q)", db.Name)
		}
		if _, dup := t.byCode[db.Code]; dup {
			return nil, fmt.Errorf("duplicate database code %q", db.Code)
		}
		t.byCode[db.Code] = db
		t.codes = append(t.codes, db.Code)
	}
	sort.Strings(t.codes)
	return t, nil
}

// Known reports whether code is a recognised database.
func (t *Table) Known(code string) bool {
	_, ok := t.byCode[code]
	return ok
}

// Lookup returns the display metadata for code.
func (t *Table) Lookup(code string) (Database, bool) {
	db, ok := t.byCode[code]
	return db, ok
}

// Codes returns all recognised codes in sorted order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Known reports whether code is in the default table.
func Known(code string) bool {
	return Default().Known(code)
}

// Lookup looks code up in the default table.
func Lookup(code string) (Database, bool) {
	return Default().Lookup(code)
}
