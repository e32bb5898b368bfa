package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/resilience"
)

// KnowledgeRepository serves chunk and curated-entry lookups from Postgres.
// Lexical search runs on a tsvector column maintained by the schema below.
type KnowledgeRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewKnowledgeRepository(db *sql.DB, executor *resilience.Executor) *KnowledgeRepository {
	return &KnowledgeRepository{db: db, executor: executor}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *KnowledgeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/mcp startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS kb_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	source_name TEXT NOT NULL,
	category TEXT,
	content TEXT NOT NULL,
	page INTEGER NOT NULL DEFAULT 0,
	trust_tier TEXT NOT NULL,
	span_index JSONB NOT NULL DEFAULT '[]'::jsonb,
	tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_kb_chunks_tsv ON kb_chunks USING gin(tsv);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_category ON kb_chunks(category);

CREATE TABLE IF NOT EXISTS curated_entries (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	source_name TEXT NOT NULL,
	category TEXT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	page INTEGER NOT NULL DEFAULT 0,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', question || ' ' || answer)) STORED,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_curated_entries_tsv ON curated_entries USING gin(tsv);
CREATE INDEX IF NOT EXISTS idx_curated_entries_category ON curated_entries(category);

CREATE TABLE IF NOT EXISTS page_spans (
	document_id TEXT NOT NULL,
	page INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	x0 DOUBLE PRECISION NOT NULL,
	y0 DOUBLE PRECISION NOT NULL,
	x1 DOUBLE PRECISION NOT NULL,
	y1 DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (document_id, page, start_offset)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SearchChunks ranks generic chunks by full-text relevance against the
// expanded terms. An empty category searches every chunk.
func (r *KnowledgeRepository) SearchChunks(ctx context.Context, terms []string, category domain.Category, limit int) ([]domain.KnowledgeRecord, error) {
	tsQuery := buildTSQuery(terms)
	if tsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	const query = `
SELECT id, document_id, source_name, COALESCE(category, ''), content, page, trust_tier, span_index,
       ts_rank(tsv, to_tsquery('english', $1)) AS rank
FROM kb_chunks
WHERE tsv @@ to_tsquery('english', $1)
  AND ($2 = '' OR category = $2)
ORDER BY rank DESC, id
LIMIT $3
`
	var records []domain.KnowledgeRecord
	err := r.execute(ctx, "postgres.search_chunks", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, tsQuery, string(category), limit)
		if err != nil {
			return fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			record, err := scanChunkRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "chunk search", err)
	}
	return records, nil
}

// Lookup matches curated Q&A entries against the expanded terms. Curated
// entries return the authored answer text as the record body.
func (r *KnowledgeRepository) Lookup(ctx context.Context, terms []string, category domain.Category) ([]domain.KnowledgeRecord, error) {
	tsQuery := buildTSQuery(terms)
	if tsQuery == "" {
		return nil, nil
	}

	const query = `
SELECT id, document_id, source_name, COALESCE(category, ''), answer, page,
       ts_rank(tsv, to_tsquery('english', $1)) AS rank
FROM curated_entries
WHERE tsv @@ to_tsquery('english', $1)
  AND ($2 = '' OR category = $2)
ORDER BY rank DESC, id
LIMIT 10
`
	var records []domain.KnowledgeRecord
	err := r.execute(ctx, "postgres.curated_lookup", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, tsQuery, string(category))
		if err != nil {
			return fmt.Errorf("query curated entries: %w", err)
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var record domain.KnowledgeRecord
			var categoryRaw string
			if err := rows.Scan(
				&record.ID, &record.DocumentID, &record.SourceName, &categoryRaw,
				&record.Text, &record.Page, &record.Score,
			); err != nil {
				return fmt.Errorf("scan curated entry: %w", err)
			}
			record.Category = domain.Category(categoryRaw)
			record.Trust = domain.TrustCuratedQA
			records = append(records, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "curated lookup", err)
	}
	return records, nil
}

// BBoxFor returns page geometry for a character range, preferring the span
// that covers the range start.
func (r *KnowledgeRepository) BBoxFor(ctx context.Context, documentID string, page, start, end int) (*domain.BBox, error) {
	const query = `
SELECT x0, y0, x1, y1
FROM page_spans
WHERE document_id = $1 AND page = $2 AND start_offset <= $3 AND end_offset >= $4
ORDER BY start_offset DESC
LIMIT 1
`
	var bbox domain.BBox
	err := r.execute(ctx, "postgres.bbox_lookup", func(ctx context.Context) error {
		row := r.db.QueryRowContext(ctx, query, documentID, page, start, end)
		return row.Scan(&bbox.X0, &bbox.Y0, &bbox.X1, &bbox.Y1)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no span geometry for %s page %d offset %d", documentID, page, start)
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "bbox lookup", err)
	}
	return &bbox, nil
}

// CuratedEntry is the seed-time shape of a hand-authored Q&A row.
type CuratedEntry struct {
	ID         string
	DocumentID string
	SourceName string
	Category   domain.Category
	Question   string
	Answer     string
	Page       int
	Keywords   []string
}

func (r *KnowledgeRepository) UpsertCuratedEntry(ctx context.Context, entry CuratedEntry) error {
	keywords, err := json.Marshal(entry.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	const query = `
INSERT INTO curated_entries (id, document_id, source_name, category, question, answer, page, keywords)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	source_name = EXCLUDED.source_name,
	category = EXCLUDED.category,
	question = EXCLUDED.question,
	answer = EXCLUDED.answer,
	page = EXCLUDED.page,
	keywords = EXCLUDED.keywords
`
	return r.execute(ctx, "postgres.upsert_curated", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			entry.ID, entry.DocumentID, entry.SourceName, string(entry.Category),
			entry.Question, entry.Answer, entry.Page, keywords,
		)
		if err != nil {
			return fmt.Errorf("upsert curated entry: %w", err)
		}
		return nil
	})
}

func (r *KnowledgeRepository) UpsertChunk(ctx context.Context, record domain.KnowledgeRecord) error {
	spanIndex, err := json.Marshal(record.SpanIndex)
	if err != nil {
		return fmt.Errorf("marshal span index: %w", err)
	}

	const query = `
INSERT INTO kb_chunks (id, document_id, source_name, category, content, page, trust_tier, span_index)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	source_name = EXCLUDED.source_name,
	category = EXCLUDED.category,
	content = EXCLUDED.content,
	page = EXCLUDED.page,
	trust_tier = EXCLUDED.trust_tier,
	span_index = EXCLUDED.span_index
`
	return r.execute(ctx, "postgres.upsert_chunk", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			record.ID, record.DocumentID, record.SourceName, string(record.Category),
			record.Text, record.Page, string(record.Trust), spanIndex,
		)
		if err != nil {
			return fmt.Errorf("upsert chunk: %w", err)
		}
		return nil
	})
}

func (r *KnowledgeRepository) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return r.executor.Execute(ctx, operation, fn, classifyPostgresError)
}

type chunkScanner interface {
	Scan(dest ...any) error
}

func scanChunkRecord(rows chunkScanner) (domain.KnowledgeRecord, error) {
	var record domain.KnowledgeRecord
	var categoryRaw, trustRaw string
	var spanRaw []byte
	if err := rows.Scan(
		&record.ID, &record.DocumentID, &record.SourceName, &categoryRaw,
		&record.Text, &record.Page, &trustRaw, &spanRaw, &record.Score,
	); err != nil {
		return domain.KnowledgeRecord{}, fmt.Errorf("scan chunk: %w", err)
	}
	record.Category = domain.Category(categoryRaw)
	record.Trust = domain.TrustTier(trustRaw)
	if len(spanRaw) > 0 {
		if err := json.Unmarshal(spanRaw, &record.SpanIndex); err != nil {
			return domain.KnowledgeRecord{}, fmt.Errorf("unmarshal span index: %w", err)
		}
	}
	return record, nil
}

// buildTSQuery joins sanitized terms with OR so any expansion variant can
// match. Terms carrying tsquery syntax characters are dropped.
func buildTSQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ToLower(term))
		if term == "" || strings.ContainsAny(term, "&|!():*'") {
			continue
		}
		// Multi-word expansions become phrase queries.
		fields := strings.Fields(term)
		if len(fields) > 1 {
			parts = append(parts, strings.Join(fields, "<->"))
			continue
		}
		parts = append(parts, term)
	}
	return strings.Join(parts, " | ")
}
