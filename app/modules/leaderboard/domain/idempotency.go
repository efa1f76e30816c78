package leaderboarddomain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDedupToken derives a deterministic token for an award request when
// the caller does not supply one. Two requests with the same scope, entity,
// amount, and reference hash to the same token, so at-least-once delivery
// from upstream job queues cannot double-count an award.
func ComputeDedupToken(scope Scope, entityID EntityID, points int64, reason, ref string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%d:%s:%s", scope, entityID, points, reason, ref))
	return hex.EncodeToString(sum[:])
}
