package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rickgao/kalshi-trader/internal/config"
)

// ConfigFingerprint returns a short stable digest of the config, stamped
// onto every decision record so audits can tell which settings produced
// a given decision.
func ConfigFingerprint(cfg *config.Config) string {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:12]
}
