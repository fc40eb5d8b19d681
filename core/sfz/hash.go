package sfz

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the SHA-256 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString computes the SHA-256 hash of a string and returns it as a hex string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashBuffer computes the SHA-256 hash of a ParsedBuffer by serializing to
// JSON. Diagnostics are excluded from serialization, so two parses of the
// same source hash identically regardless of warnings.
func HashBuffer(b *ParsedBuffer) (string, error) {
	data, err := jsonMarshal(b)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// Blake3Source computes the BLAKE3 hash of raw source bytes and returns it
// as a hex string. Used alongside the SHA-256 buffer hash for catalog
// deduplication.
func Blake3Source(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashFragments computes the SHA-256 hash of an expanded fragment sequence.
// Identical include graphs expand to identical fragment sequences, so this
// hash is stable across repeated expansions of the same root.
func HashFragments(frags []SourceFragment) (string, error) {
	data, err := jsonMarshal(frags)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}
