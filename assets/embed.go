// Package assets embeds the SQL migrations and the default config file.
package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed sql/*.sql config.yaml
var FS embed.FS

// Migration is one embedded schema script.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded scripts in lexical order.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(FS, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := FS.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}

// DefaultConfig returns the bundled config.yaml.
func DefaultConfig() []byte {
	b, _ := FS.ReadFile("config.yaml")
	return b
}
