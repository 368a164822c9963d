// Package database owns the SQLite connection and the schema migration
// runner for GrowWiz.
//
// Migrations are plain SQL files embedded by the migrations package and
// passed in as an fs.FS:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Timestamps are stored as UTC text; booleans as INTEGER 0/1.
package database
