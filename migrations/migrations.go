package migrations

import "embed"

// Schema for the persistent operation cache, one directory per driver.
// Embedded so the binary carries its own schema.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
