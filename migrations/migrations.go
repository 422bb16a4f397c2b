// Package migrations embeds the SQL schema migrations.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is one numbered schema change.
type Migration struct {
	Name string
	Up   string
	Down string
}

// All returns the embedded migrations ordered by name.
func All() ([]Migration, error) {
	ups, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(ups)

	out := make([]Migration, 0, len(ups))
	for _, up := range ups {
		name := strings.TrimSuffix(up, ".up.sql")
		upSQL, err := files.ReadFile(up)
		if err != nil {
			return nil, err
		}
		downSQL, err := files.ReadFile(name + ".down.sql")
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: name, Up: string(upSQL), Down: string(downSQL)})
	}
	return out, nil
}
