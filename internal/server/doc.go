// Package server exposes the trader's control surface: REST endpoints
// for state and lifecycle commands, plus a websocket feed of scans,
// decisions, positions, and activity.
//
// The server never makes trading decisions; every command delegates to
// the engine, and reads come straight from the store.
package server
