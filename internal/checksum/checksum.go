// Package checksum computes content digests used as note ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether etag identifies data. Surrounding quotes and a weak
// validator prefix ("W/") are ignored. An empty etag matches anything.
func Matches(data []byte, etag string) bool {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	etag = strings.Trim(etag, `"`)
	if etag == "" {
		return true
	}
	return etag == Sum(data)
}
