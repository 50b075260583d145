// Package migrations embeds the schema of each store. The three stores are
// independent databases; each gets only its own schema.
package migrations

import "embed"

//go:embed personal/*.sql auth/*.sql pseudonym/*.sql
var files embed.FS

// Personal returns the personal-data store schema.
func Personal() string { return read("personal/0001_init.sql") }

// Auth returns the auth store schema.
func Auth() string { return read("auth/0001_init.sql") }

// Pseudonym returns the pseudonym directory schema.
func Pseudonym() string { return read("pseudonym/0001_init.sql") }

func read(name string) string {
	b, err := files.ReadFile(name)
	if err != nil {
		// The file is compiled in; a failure here is a build defect.
		panic(err)
	}
	return string(b)
}
