// Package knowledge provides the vector-backed document store used for
// retrieval-augmented answers.
//
// Documents are embedded on write and searched by cosine similarity using
// PostgreSQL with the pgvector extension. Search results surface as Evidence:
// content plus source metadata, ranked by descending relevance, with the
// score kept internal to this package.
package knowledge

import "time"

// Metadata identifies where a piece of evidence came from.
type Metadata struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	ChunkType  string `json:"chunk_type"`
}

// Document is a stored knowledge chunk.
type Document struct {
	ID        string
	Content   string
	Metadata  Metadata
	CreatedAt time.Time
}

// Evidence is a retrieved content fragment with its source metadata. It is
// transient: produced by retrieval, consumed by prompt assembly, never
// persisted on its own. Two Evidence values are duplicates when their
// Content is byte-identical.
type Evidence struct {
	Content  string
	Metadata Metadata
}
