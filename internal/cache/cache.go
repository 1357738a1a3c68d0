package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores decoded values in memory
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// ToolKey generates a cache key for one tool invocation. The content is part
// of the key, so a reused call ID with a different payload never hits.
func ToolKey(toolName, callID, content string) string {
	hash := sha256.Sum256([]byte(toolName + "\x00" + callID + "\x00" + content))
	return "groundcheck:v2:" + hex.EncodeToString(hash[:])
}
