package ports

import (
	"context"
	"time"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// DocumentStore performs lexical/full-text search over general chunks.
type DocumentStore interface {
	SearchChunks(ctx context.Context, terms []string, category domain.Category, limit int) ([]domain.KnowledgeRecord, error)
}

// VectorStore performs semantic search. It is optional: a nil VectorStore
// degrades the hybrid tier to lexical-only retrieval.
type VectorStore interface {
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]domain.KnowledgeRecord, error)
}

// Embedder builds a vector for query text. Optional, paired with VectorStore.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CuratedKBStore looks up hand-authored Q&A records.
type CuratedKBStore interface {
	Lookup(ctx context.Context, expandedTerms []string, category domain.Category) ([]domain.KnowledgeRecord, error)
}

// FormIndex resolves exact filename/keyword mappings for document-retrieval
// style queries.
type FormIndex interface {
	Resolve(ctx context.Context, keywords []string) ([]domain.DocumentRef, error)
}

// SpanIndex resolves page/bounding-box geometry computed at ingestion time.
type SpanIndex interface {
	BBoxFor(ctx context.Context, documentID string, page int, start, end int) (*domain.BBox, error)
}

// ResponseCache stores final answers keyed by (normalized query, category).
// The pipeline performs no retries against it and never blocks a response on
// it; failures are logged and dropped.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*domain.Answer, bool)
	Set(ctx context.Context, key string, answer domain.Answer, ttl time.Duration)
}
