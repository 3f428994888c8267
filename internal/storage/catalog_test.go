package storage

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestCatalogRegister(t *testing.T) {
	c := NewCatalog()

	def := QueryDefinition{ID: "test.query", SQL: "SELECT 1"}
	if err := c.Register(def); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !c.Has("test.query") {
		t.Error("registered query not found")
	}

	if err := c.Register(def); !IsConflict(err) {
		t.Errorf("duplicate register: got %v, want conflict", err)
	}
	if err := c.Register(QueryDefinition{ID: "", SQL: "SELECT 1"}); !IsInvalidArgument(err) {
		t.Errorf("empty id: got %v, want invalid_argument", err)
	}
	if err := c.Register(QueryDefinition{ID: "test.other", SQL: "  "}); !IsInvalidArgument(err) {
		t.Errorf("blank sql: got %v, want invalid_argument", err)
	}
}

func TestCatalogAllSorted(t *testing.T) {
	c := NewCatalog()
	for _, id := range []string{"b.two", "a.one", "c.three"} {
		if err := c.Register(QueryDefinition{ID: id, SQL: "SELECT 1"}); err != nil {
			t.Fatalf("register %s failed: %v", id, err)
		}
	}
	all := c.All()
	if len(all) != 3 {
		t.Fatalf("got %d definitions, want 3", len(all))
	}
	if all[0].ID != "a.one" || all[1].ID != "b.two" || all[2].ID != "c.three" {
		t.Errorf("definitions not sorted: %v", all)
	}
}

func TestDefaultCatalogWellFormed(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	namespaces := map[string]bool{}
	for _, def := range c.All() {
		if !strings.Contains(def.ID, ".") {
			t.Errorf("query id %q is not namespaced", def.ID)
		}
		if strings.TrimSpace(def.SQL) == "" {
			t.Errorf("query %s has empty SQL", def.ID)
		}
		if def.Description == "" {
			t.Errorf("query %s has no description", def.ID)
		}
		namespaces[def.Namespace()] = true
	}

	for _, ns := range []string{"vitals", "alarms", "telemetry", "audit", "patient"} {
		if !namespaces[ns] {
			t.Errorf("namespace %s missing from default catalog", ns)
		}
	}
}

func TestDefaultCatalogPrepares(t *testing.T) {
	// setupTestStore installs the full catalog; every statement must have
	// compiled against the schema.
	store := setupTestStore(t)
	for _, def := range store.Catalog.All() {
		if !store.Manager.HasQuery(def.ID) {
			t.Errorf("query %s was not prepared", def.ID)
		}
	}
}

func TestCatalogMarkdown(t *testing.T) {
	c := DefaultCatalog()
	md := c.Markdown()

	if !strings.Contains(md, "# Query Catalog") {
		t.Error("missing title")
	}
	for _, section := range []string{"## vitals", "## alarms", "## telemetry", "## audit", "## patient"} {
		if !strings.Contains(md, section) {
			t.Errorf("missing section %q", section)
		}
	}
	if !strings.Contains(md, "### `vitals.insert`") {
		t.Error("missing vitals.insert entry")
	}
	if !strings.Contains(md, "```sql") {
		t.Error("missing SQL blocks")
	}
}

func TestCatalogYAML(t *testing.T) {
	c := DefaultCatalog()
	out, err := c.YAML()
	if err != nil {
		t.Fatalf("yaml render failed: %v", err)
	}

	var doc struct {
		Queries []QueryDefinition `yaml:"queries"`
	}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if len(doc.Queries) != c.Len() {
		t.Errorf("yaml has %d queries, want %d", len(doc.Queries), c.Len())
	}
}
