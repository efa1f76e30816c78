package leaderboarddomain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor marks a pagination cursor that cannot be decoded. Cursors
// are opaque to clients; anything hand-built or truncated fails with this.
var ErrInvalidCursor = errors.New("invalid cursor format")

type cursorPayload struct {
	Rank int `json:"rank"`
}

// EncodeCursor packs a zero-based rank offset into an opaque page token.
func EncodeCursor(rank int) string {
	raw, _ := json.Marshal(cursorPayload{Rank: rank})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor unpacks a page token back into a rank offset. The empty cursor
// means the first page.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if payload.Rank < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	return payload.Rank, nil
}
