// Package venue implements the Kalshi REST client backing the live
// broker: RSA-PSS request signing, bounded retry with jittered backoff,
// and the market/portfolio endpoints the engine consumes.
package venue
