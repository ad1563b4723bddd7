// Package strategy holds the entry and exit decision functions.
//
// Both are pure: identical inputs always yield identical outputs, which
// keeps dry runs and replay tests deterministic. All carried state
// (peak PnL, trailing stop) flows in and out through explicit values.
package strategy
