// Package model defines shared data types used across the trading engine.
//
// Conventions:
//   - Prices: float64 probabilities in [0.01, 0.99] ($0.01-$0.99 per contract)
//   - PnL and thresholds: percentages (4.0 = 4%)
//   - Timestamps: time.Time in UTC
//   - IDs: venue-assigned strings for orders, "pos-" + order id for positions
package model
