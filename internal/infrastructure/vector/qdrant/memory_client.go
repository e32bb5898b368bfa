package qdrant

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

// MemoryClient is an in-process stand-in for a qdrant collection, used when
// no vector backend is configured and in tests.
type MemoryClient struct {
	mu      sync.RWMutex
	vectors [][]float32
	records []domain.KnowledgeRecord
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// Add indexes one record with its embedding.
func (m *MemoryClient) Add(record domain.KnowledgeRecord, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	m.vectors = append(m.vectors, vector)
}

func (m *MemoryClient) SearchSimilar(_ context.Context, queryVector []float32, limit int) ([]domain.KnowledgeRecord, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		record domain.KnowledgeRecord
		score  float64
	}
	hits := make([]hit, 0, len(m.records))
	for i, record := range m.records {
		score := cosine(queryVector, m.vectors[i])
		if score <= 0 {
			continue
		}
		record.Score = score
		hits = append(hits, hit{record: record, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].record.ID < hits[j].record.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]domain.KnowledgeRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.record)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
