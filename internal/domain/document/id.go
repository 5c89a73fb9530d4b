package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// idHashLen is the number of hex characters kept from the content digest.
const idHashLen = 12

// DeriveID builds a stable document identifier from a type prefix and the
// document content. Identical content always yields the same ID, so
// re-indexing the same corpus is idempotent.
func DeriveID(prefix, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(sum[:])[:idHashLen])
}

// DeriveChunkID builds an identifier for one chunk of a split document.
func DeriveChunkID(prefix, content string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s_%s_c%d", prefix, hex.EncodeToString(sum[:])[:idHashLen], chunkIndex)
}
