// Package store persists the ecsgen output manifest in SQLite.
//
// The manifest maps every emitted unit identity to the content hash last
// written for it, the generator that produced it, and the pass that wrote
// it. Directory sinks consult it to skip rewriting identical files across
// process restarts, and to find files that belong to units which no longer
// exist.
//
// The database runs in WAL mode with synchronous=NORMAL and a 5s busy
// timeout, set through the connection string. PRAGMA user_version counts
// the applied migrations.
//
// All listing queries order by identity COLLATE BINARY or by pass seq, so
// results are identical across runs.
package store
