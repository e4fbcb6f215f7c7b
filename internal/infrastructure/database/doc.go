// Package database provides SQLite connectivity for wakelight.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying and rolling back embedded schema migrations
//   - Health checks and small transaction helpers
//
// Migrations are plain SQL files named NNNN_description.up.sql with an
// optional NNNN_description.down.sql, read from any fs.FS (normally the
// embed.FS exported by the migrations package).
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS()); err != nil {
//	    return err
//	}
package database
