package analysiscache

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Key holds the four inputs that address a cache slot. Repository and file
// path are deliberately absent: byte-identical content analyzed the same way
// shares one entry wherever it lives.
type Key struct {
	Content          []byte
	AnalyzerIdentity string
	PromptHash       string
	SchemaVersion    int
}

// Meta is stored alongside an entry but does not address it.
type Meta struct {
	AnalysisType string
	CostHint     int64
}

// ContentHash returns the hex BLAKE2b-256 digest of raw content bytes.
// No normalization is applied: a single changed byte is a different hash.
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CacheKey derives the slot key from a content hash and the analyzer inputs.
// Each field is length-prefixed so no two distinct tuples share an encoding.
func CacheKey(contentHash, analyzerIdentity, promptHash string, schemaVersion int) string {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	writeField(h, contentHash)
	writeField(h, analyzerIdentity)
	writeField(h, promptHash)
	var v [binary.MaxVarintLen64]byte
	n := binary.PutVarint(v[:], int64(schemaVersion))
	h.Write(v[:n])
	return hex.EncodeToString(h.Sum(nil))
}

// digest computes both hashes for k.
func (k Key) digest() (contentHash, cacheKey string) {
	contentHash = ContentHash(k.Content)
	return contentHash, CacheKey(contentHash, k.AnalyzerIdentity, k.PromptHash, k.SchemaVersion)
}

func writeField(w io.Writer, s string) {
	var n [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(n[:], uint64(len(s)))
	_, _ = w.Write(n[:l])
	_, _ = w.Write([]byte(s))
}
