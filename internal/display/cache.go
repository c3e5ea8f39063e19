// Package display keeps the per-turn image rendering cache for the chat
// front end: the same rendered image is shown at most once per turn.
package display

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache is ephemeral: Reset is called at the start of every turn and the
// contents are discarded at turn end. It never outlives a turn.
type Cache struct {
	shown map[string]bool
}

// NewCache creates an empty per-turn cache.
func NewCache() *Cache {
	return &Cache{shown: make(map[string]bool)}
}

// Reset clears the cache for a new turn.
func (c *Cache) Reset() {
	c.shown = make(map[string]bool)
}

// MarkShown records image content and reports whether it had already been
// shown this turn.
func (c *Cache) MarkShown(data string) bool {
	key := contentKey(data)
	if c.shown[key] {
		return true
	}
	c.shown[key] = true
	return false
}

func contentKey(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
