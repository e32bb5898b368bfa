package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/resilience"
)

// Client is a read-only search client for an externally maintained qdrant
// collection. Ingestion owns collection creation and upserts.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

// SearchSimilar returns the closest indexed chunks for a query vector,
// decoded into knowledge records with their trust tier and span geometry.
func (c *Client) SearchSimilar(ctx context.Context, queryVector []float32, limit int) ([]domain.KnowledgeRecord, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	call := func(ctx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newStatusError("search", resp)
		}
		searchResp.Result = searchResp.Result[:0]
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "vector search", err)
	}

	out := make([]domain.KnowledgeRecord, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		record := domain.KnowledgeRecord{
			ID:         stringPayload(r.Payload, "chunk_id"),
			DocumentID: stringPayload(r.Payload, "doc_id"),
			SourceName: stringPayload(r.Payload, "source"),
			Category:   domain.Category(stringPayload(r.Payload, "category")),
			Text:       stringPayload(r.Payload, "text"),
			Page:       intPayload(r.Payload, "page"),
			Trust:      domain.TrustTier(stringPayload(r.Payload, "trust_tier")),
			Score:      r.Score,
		}
		if record.Trust == "" {
			record.Trust = domain.TrustGenericChunk
		}
		if raw := stringPayload(r.Payload, "span_index"); raw != "" {
			// Geometry decode failures leave the record usable without bboxes.
			_ = json.Unmarshal([]byte(raw), &record.SpanIndex)
		}
		out = append(out, record)
	}
	return out, nil
}

func newStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
