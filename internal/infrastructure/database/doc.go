// Package database provides SQLite connectivity for the command journal.
//
// The journal is diagnostic only: nothing stored here is read back into
// zone state on startup.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_description.up.sql
// (with an optional matching .down.sql) and are passed to Migrate as an
// fs.FS, normally the embedded migrations.FS.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
