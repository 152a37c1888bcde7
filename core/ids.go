package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ChunkID returns the deterministic vector ID for a segment of an entity.
// Re-running the pipeline for the same entity and segment index produces
// the same ID, which is what makes reingestion a replace instead of a
// duplicate. The format is a wire contract; do not change it.
func ChunkID(entityID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", entityID, index)
}

// WikiChunkID returns the deterministic vector ID for a segment of a named
// sub-article attached to an entity. Spaces in the article title are
// replaced with underscores.
func WikiChunkID(articleTitle, entityID string, index int) string {
	title := strings.ReplaceAll(articleTitle, " ", "_")
	return fmt.Sprintf("wiki-%s-%s-chunk-%d", title, entityID, index)
}

// EphemeralChunkID returns a UUID-suffixed vector ID. Unlike ChunkID it is
// never stable across runs, so repeated inserts accumulate instead of
// replacing. Used only for transient test/demo writes.
func EphemeralChunkID(entityID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d-%s", entityID, index, uuid.NewString())
}

// Fingerprint returns a hex-encoded BLAKE2b hash of the text. Identical
// content always produces the same fingerprint, so a stored fingerprint can
// tell an unchanged entity apart from an edited one before any embedding
// calls are made.
func Fingerprint(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
