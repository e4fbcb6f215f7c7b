// Package migrations embeds the SQL schema files into the binary so the
// client can migrate its database without anything on disk but the db file.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS returns the embedded migration files, rooted at the file names.
func FS() embed.FS {
	return files
}
