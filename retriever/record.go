package retriever

import (
	"time"

	"github.com/berea-ai/berea/vectorstore"
)

// BufferIndexKey is the metadata key that ties a stored document back to its
// position in the memory stream.
const BufferIndexKey = "buffer_idx"

// MemoryRecord is a document living in the conversational memory stream.
// BufferIndex is monotonic and assigned at append time; every record surfaced
// by a retriever carries one.
type MemoryRecord struct {
	vectorstore.Document
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	BufferIndex    int       `json:"buffer_index"`
}
