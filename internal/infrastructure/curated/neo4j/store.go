package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/resilience"
)

// Store serves curated Q&A entries from a neo4j graph. Entries are (:Entry)
// nodes linked to (:Keyword) nodes, so synonym expansions reach the same
// entry through any of its keywords.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	executor *resilience.Executor
}

// New builds the store and verifies the server is reachable. Creating a
// driver alone does not dial, so the connectivity check happens here, where
// callers can still fall back to another backend.
func New(ctx context.Context, uri, user, password, database string, executor *resilience.Executor) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver, database: database, executor: executor}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

const lookupQuery = `
MATCH (e:Entry)-[:TAGGED]->(k:Keyword)
WHERE k.term IN $terms AND ($category = '' OR e.category = $category)
WITH e, count(k) AS matched
RETURN e.id AS id, e.document_id AS document_id, e.source_name AS source_name,
       e.category AS category, e.answer AS answer, e.page AS page, matched
ORDER BY matched DESC, id
LIMIT 10
`

func (s *Store) Lookup(ctx context.Context, terms []string, category domain.Category) ([]domain.KnowledgeRecord, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var records []domain.KnowledgeRecord
	call := func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeRead,
			DatabaseName: s.database,
		})
		defer session.Close(ctx)

		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			cursor, err := tx.Run(ctx, lookupQuery, map[string]any{
				"terms":    terms,
				"category": string(category),
			})
			if err != nil {
				return nil, err
			}

			out := make([]domain.KnowledgeRecord, 0, 10)
			for cursor.Next(ctx) {
				rec := cursor.Record()
				out = append(out, domain.KnowledgeRecord{
					ID:         stringValue(rec, "id"),
					DocumentID: stringValue(rec, "document_id"),
					SourceName: stringValue(rec, "source_name"),
					Category:   domain.Category(stringValue(rec, "category")),
					Text:       stringValue(rec, "answer"),
					Page:       intValue(rec, "page"),
					Trust:      domain.TrustCuratedQA,
					Score:      float64(intValue(rec, "matched")),
				})
			}
			return out, cursor.Err()
		})
		if err != nil {
			return err
		}
		records = result.([]domain.KnowledgeRecord)
		return nil
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, "neo4j.curated_lookup", call, classifyNeo4jError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "graph curated lookup", err)
	}
	return records, nil
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if neo4j.IsConnectivityError(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func intValue(record *neo4j.Record, key string) int {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
