package object

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashSize is the length of a hex-encoded Hash.
const HashSize = 64

// HashBytes computes the raw SHA-256 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-256 of the envelope "type len\0content".
// The type prefix keeps blobs, trees and commits in disjoint namespaces.
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha256.New()
	writeEnvelopeHeader(h, objType, len(data))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// BlobHash returns the digest a blob with the given payload is stored under.
func BlobHash(data []byte) Hash {
	return HashObject(TypeBlob, data)
}

// ValidHash reports whether h is a full, lowercase hex digest.
func ValidHash(h Hash) bool {
	return len(h) == HashSize && isLowerHex(string(h))
}

// ValidPrefix reports whether p is a non-empty lowercase hex string no longer
// than a full digest.
func ValidPrefix(p string) bool {
	return p != "" && len(p) <= HashSize && isLowerHex(p)
}

func isLowerHex(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}
