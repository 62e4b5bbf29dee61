package storage

import (
	"crypto/sha1" //nolint:gosec
	"fmt"
	"strings"
)

const (
	// IDShort is the display length of IDs in CLI output.
	IDShort = 7
	// IDMinLen is the shortest prefix matched against IDs.
	IDMinLen = 4
)

// IDFor returns the 40-char hex ID of a lookup. Repeating the same query
// (ignoring case and surrounding space) with the same kind yields the same
// ID, so the history keeps one entry per query.
func IDFor(kind, query string) string {
	key := kind + "\x00" + strings.ToLower(strings.TrimSpace(query))
	//nolint:gosec // identifier generation; not used for cryptographic security.
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}
