package types

import (
	"github.com/google/uuid"
)

// Topic is the closed classification of an incoming question. It selects
// the prompt specialization and, when local retrieval comes up empty, the
// external page to fall back to.
type Topic string

const (
	TopicID        Topic = "id"
	TopicDressCode Topic = "dress_code"
	TopicGeneral   Topic = "general"
)

// Chunk is a bounded span of document text used as a retrieval unit.
// Immutable once produced by the chunker.
type Chunk struct {
	ID       uuid.UUID
	DocID    uuid.UUID
	DocTitle string
	Index    int
	Page     int
	Content  string
}

// ScoredChunk is a chunk returned from similarity search together with its
// cosine similarity against the query vector.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// QueryResult is the engine's answer to a single question. Evidence is
// empty when the answer came from the external fallback or from the
// no-information terminal reply.
type QueryResult struct {
	Answer   string
	Evidence []Chunk
	Topic    Topic
}

// LoadResult records the outcome of ingesting one source document.
type LoadResult struct {
	Path   string
	Title  string
	Chunks int
	Err    error
}

// DocumentSource is a policy document configured for startup ingestion.
type DocumentSource struct {
	Name string
	Path string
}
