// Package engine runs the trading loop: scan, score, exit, enter, on a
// fixed cadence with every decision serialized through one goroutine.
//
// The engine owns the market state cache and the per-market cooldowns.
// Pure decision logic lives in strategy and scoring; the engine wires
// their outputs to the execution manager and the risk governor, and
// records an audit entry for every decision it makes.
package engine
