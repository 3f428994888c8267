// Package storage implements the persistence engine: the query catalog, the
// database manager and the typed repositories over SQLite.
package storage

import (
	"fmt"
	"sort"
	"strings"
)

// QueryDefinition is one named SQL statement in the catalog. IDs are
// namespaced ("vitals.insert") and stable across releases so log lines and
// generated documentation can refer to queries by name.
type QueryDefinition struct {
	ID          string   `yaml:"id"`
	SQL         string   `yaml:"sql"`
	Description string   `yaml:"description"`
	Parameters  []string `yaml:"parameters,omitempty"`
	ReadOnly    bool     `yaml:"readOnly"`
}

// Namespace returns the portion of the ID before the first dot.
func (d QueryDefinition) Namespace() string {
	if i := strings.IndexByte(d.ID, '.'); i > 0 {
		return d.ID[:i]
	}
	return d.ID
}

// Catalog is an append-only registry of query definitions. It is populated
// once at startup; duplicate registration indicates a wiring bug.
type Catalog struct {
	defs map[string]QueryDefinition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]QueryDefinition)}
}

// Register adds a definition to the catalog. Empty IDs or SQL are rejected
// with invalid_argument; a duplicate ID is a conflict.
func (c *Catalog) Register(def QueryDefinition) error {
	if strings.TrimSpace(def.ID) == "" {
		return invalidArgf("query id must not be empty")
	}
	if strings.TrimSpace(def.SQL) == "" {
		return invalidArgf("query %s has empty SQL", def.ID)
	}
	if _, ok := c.defs[def.ID]; ok {
		return conflictf("query %s already registered", def.ID)
	}
	c.defs[def.ID] = def
	return nil
}

// mustRegister registers a definition and panics on failure. Used only for
// the built-in catalog, where a failure is a programming error.
func (c *Catalog) mustRegister(def QueryDefinition) {
	if err := c.Register(def); err != nil {
		panic(fmt.Sprintf("storage: bad catalog entry: %v", err))
	}
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (QueryDefinition, bool) {
	def, ok := c.defs[id]
	return def, ok
}

// Has reports whether id is registered.
func (c *Catalog) Has(id string) bool {
	_, ok := c.defs[id]
	return ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// All returns every definition sorted by ID.
func (c *Catalog) All() []QueryDefinition {
	out := make([]QueryDefinition, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InstallPrepared registers every catalog entry as a prepared statement on
// the manager. Any failure here is fatal for startup: the statement text is
// static, so a prepare error means the schema and catalog disagree.
func (c *Catalog) InstallPrepared(m *Manager) error {
	for _, def := range c.All() {
		if err := m.RegisterPrepared(def.ID, def.SQL); err != nil {
			return fmt.Errorf("failed to prepare %s: %w", def.ID, err)
		}
	}
	return nil
}
