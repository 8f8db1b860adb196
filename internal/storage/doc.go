// Package storage persists named crawl snapshots.
//
// The crawl core deliberately has no durability of its own; the CLI and
// the checkpoint service use this package to keep runs restartable.
// Backends:
//   - "file": one YAML file per snapshot, atomically replaced on save
//   - "sqlite": a single SQLite database file
package storage
