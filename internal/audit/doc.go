// Package audit is the append-only activity log: automation decisions,
// manual interventions, emergency stops, sensor availability and errors.
//
// Entries are never edited. Recent returns newest first. The only way
// rows leave the table is Prune, which the retention job calls with a
// cut-off; the controller never deletes.
package audit
