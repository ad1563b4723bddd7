// Package reconcile keeps the local audit trail consistent with the
// venue and computes PnL from the fill stream.
//
// The venue is the source of truth: orders and positions found there
// are upserted locally, fills are appended from a strictly advancing
// cursor, and positions the venue reports that the trader never opened
// are synthesized so risk accounting sees them.
package reconcile
