// Package store persists the trader's audit trail: orders, positions,
// fills, decisions, and activity.
//
// Orders and positions are keyed rows updated in place; fills,
// decisions, and activity are append-only. Two implementations exist:
// Postgres for durable sessions and Memory for paper sessions and
// tests. The engine treats both identically.
package store
