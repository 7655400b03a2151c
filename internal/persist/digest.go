package persist

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 of a world dump. Equal dumps have
// equal digests, which lets the store skip unchanged worlds.
func Digest(dump string) string {
	sum := blake2b.Sum256([]byte(dump))
	return hex.EncodeToString(sum[:])
}
