package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashBytes returns the hex-encoded SHA-256 digest of raw content. Used as
// the per-file change signal; file modification times are never trusted.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashEntryText returns the content hash of one log entry. The text is
// normalized first so whitespace-only edits do not produce a new hash:
// trailing whitespace is stripped per line and the whole text is trimmed.
func HashEntryText(text string) string {
	return HashBytes([]byte(NormalizeEntryText(text)))
}

// NormalizeEntryText trims trailing whitespace from every line and
// surrounding blank lines from the entry as a whole.
func NormalizeEntryText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// ShortHash returns an abbreviated hash suitable for display.
func ShortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
