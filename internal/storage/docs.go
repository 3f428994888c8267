package storage

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Markdown renders the catalog as reference documentation, grouped by
// namespace in the order queries were registered within it.
func (c *Catalog) Markdown() string {
	var b strings.Builder

	b.WriteString("# Query Catalog\n\n")
	fmt.Fprintf(&b, "%d registered queries.\n", c.Len())

	var current string
	for _, def := range c.All() {
		if ns := def.Namespace(); ns != current {
			current = ns
			fmt.Fprintf(&b, "\n## %s\n", current)
		}

		fmt.Fprintf(&b, "\n### `%s`\n\n", def.ID)
		if def.Description != "" {
			b.WriteString(def.Description)
			b.WriteString("\n\n")
		}
		if def.ReadOnly {
			b.WriteString("Read-only.\n\n")
		}
		if len(def.Parameters) > 0 {
			b.WriteString("Parameters:\n")
			for _, p := range def.Parameters {
				fmt.Fprintf(&b, "- `%s`\n", p)
			}
			b.WriteString("\n")
		}
		b.WriteString("```sql\n")
		b.WriteString(def.SQL)
		b.WriteString("\n```\n")
	}

	return b.String()
}

// YAML renders the catalog as a machine-readable document, sorted by ID.
func (c *Catalog) YAML() ([]byte, error) {
	doc := struct {
		Queries []QueryDefinition `yaml:"queries"`
	}{Queries: c.All()}
	return yaml.Marshal(doc)
}
