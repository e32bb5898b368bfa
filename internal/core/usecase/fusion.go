package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

type fusedRecord struct {
	record domain.KnowledgeRecord
	score  float64
}

// fuseRecordsRRF merges semantic and lexical result lists with reciprocal
// rank fusion. Records appearing in both lists accumulate both rank scores.
func fuseRecordsRRF(semantic, lexical []domain.KnowledgeRecord, rrfK int) []domain.KnowledgeRecord {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedRecord, len(semantic)+len(lexical))
	addList := func(records []domain.KnowledgeRecord) {
		for rank, record := range records {
			key := recordKey(record)
			candidate := acc[key]
			candidate.record = preferRicherRecord(candidate.record, record)
			candidate.score += 1.0 / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addList(semantic)
	addList(lexical)

	out := make([]domain.KnowledgeRecord, 0, len(acc))
	for _, c := range acc {
		record := c.record
		record.Score = c.score
		out = append(out, record)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimRecords(records []domain.KnowledgeRecord, limit int) []domain.KnowledgeRecord {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[:limit]
}

func recordKey(record domain.KnowledgeRecord) string {
	if record.ID != "" {
		return record.ID
	}
	return fmt.Sprintf("%s|%d|%s", record.DocumentID, record.Page, record.Text)
}

func preferRicherRecord(current, candidate domain.KnowledgeRecord) domain.KnowledgeRecord {
	if current.ID == "" && current.DocumentID == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.SourceName == "" && candidate.SourceName != "" {
		current.SourceName = candidate.SourceName
	}
	if current.Category == "" && candidate.Category != "" {
		current.Category = candidate.Category
	}
	if current.Trust == "" && candidate.Trust != "" {
		current.Trust = candidate.Trust
	}
	if len(current.SpanIndex) == 0 && len(candidate.SpanIndex) > 0 {
		current.SpanIndex = candidate.SpanIndex
	}
	if current.Page == 0 && candidate.Page != 0 {
		current.Page = candidate.Page
	}
	return current
}
