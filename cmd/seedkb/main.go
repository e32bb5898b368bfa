package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/clinical-qa/internal/config"
	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/chunking"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/formindex"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/repository/postgres"
)

// seedkb loads the hand-maintained knowledge workbook: curated Q&A rows go
// to Postgres, the form inventory sheet is rendered to the YAML file the
// form index serves at runtime.
//
// Workbook layout:
//
//	CuratedQA: id | document_id | source_name | category | question | answer | page | keywords (comma separated)
//	Protocols: document_id | source_name | category | page | trust_tier | text
//	Forms:     document_id | filename | title | keywords (comma separated)
func main() {
	workbookPath := flag.String("workbook", "./data/knowledge.xlsx", "path to the knowledge workbook")
	formsOut := flag.String("forms-out", "./data/forms.yaml", "output path for the form inventory")
	chunkSize := flag.Int("chunk-size", 900, "chunk size in runes for protocol documents")
	chunkOverlap := flag.Int("chunk-overlap", 150, "chunk overlap in runes")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	workbook, err := excelize.OpenFile(*workbookPath)
	if err != nil {
		log.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	repo := postgres.NewKnowledgeRepository(db, nil)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	seeded, err := seedCuratedEntries(ctx, repo, workbook)
	if err != nil {
		log.Fatalf("seed curated entries: %v", err)
	}
	log.Printf("seeded %d curated entries", seeded)

	chunks, err := seedProtocolChunks(ctx, repo, workbook, chunking.NewSplitter(*chunkSize, *chunkOverlap))
	if err != nil {
		log.Fatalf("seed protocol chunks: %v", err)
	}
	log.Printf("seeded %d protocol chunks", chunks)

	written, err := writeFormInventory(workbook, *formsOut)
	if err != nil {
		log.Fatalf("write form inventory: %v", err)
	}
	log.Printf("wrote %d forms to %s", written, *formsOut)
}

func seedCuratedEntries(ctx context.Context, repo *postgres.KnowledgeRepository, workbook *excelize.File) (int, error) {
	rows, err := workbook.GetRows("CuratedQA")
	if err != nil {
		return 0, fmt.Errorf("read CuratedQA sheet: %w", err)
	}

	seeded := 0
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) < 6 || strings.TrimSpace(cell(row, 5)) == "" {
			continue
		}

		id := strings.TrimSpace(cell(row, 0))
		if id == "" {
			id = uuid.NewString()
		}
		entry := postgres.CuratedEntry{
			ID:         id,
			DocumentID: strings.TrimSpace(cell(row, 1)),
			SourceName: strings.TrimSpace(cell(row, 2)),
			Category:   domain.Category(strings.ToLower(strings.TrimSpace(cell(row, 3)))),
			Question:   strings.TrimSpace(cell(row, 4)),
			Answer:     strings.TrimSpace(cell(row, 5)),
			Page:       parseInt(cell(row, 6)),
			Keywords:   splitKeywords(cell(row, 7)),
		}
		if err := repo.UpsertCuratedEntry(ctx, entry); err != nil {
			return seeded, fmt.Errorf("row %d: %w", i+1, err)
		}
		seeded++
	}
	return seeded, nil
}

func seedProtocolChunks(ctx context.Context, repo *postgres.KnowledgeRepository, workbook *excelize.File, splitter *chunking.Splitter) (int, error) {
	rows, err := workbook.GetRows("Protocols")
	if err != nil {
		// The sheet is optional; curated-only workbooks are valid.
		return 0, nil
	}

	seeded := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		text := strings.TrimSpace(cell(row, 5))
		documentID := strings.TrimSpace(cell(row, 0))
		if documentID == "" || text == "" {
			continue
		}

		trust := domain.TrustTier(strings.TrimSpace(cell(row, 4)))
		if trust == "" {
			trust = domain.TrustStructuredProtocol
		}

		for _, chunk := range splitter.Split(text) {
			record := domain.KnowledgeRecord{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				SourceName: strings.TrimSpace(cell(row, 1)),
				Category:   domain.Category(strings.ToLower(strings.TrimSpace(cell(row, 2)))),
				Text:       chunk.Text,
				Page:       parseInt(cell(row, 3)),
				Trust:      trust,
			}
			if err := repo.UpsertChunk(ctx, record); err != nil {
				return seeded, fmt.Errorf("row %d: %w", i+1, err)
			}
			seeded++
		}
	}
	return seeded, nil
}

func writeFormInventory(workbook *excelize.File, path string) (int, error) {
	rows, err := workbook.GetRows("Forms")
	if err != nil {
		return 0, fmt.Errorf("read Forms sheet: %w", err)
	}

	entries := make([]formindex.Entry, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		documentID := strings.TrimSpace(cell(row, 0))
		filename := strings.TrimSpace(cell(row, 1))
		if documentID == "" || filename == "" {
			continue
		}
		entries = append(entries, formindex.Entry{
			DocumentID: documentID,
			Filename:   filename,
			Title:      strings.TrimSpace(cell(row, 2)),
			Keywords:   splitKeywords(cell(row, 3)),
		})
	}

	payload, err := yaml.Marshal(map[string][]formindex.Entry{"forms": entries})
	if err != nil {
		return 0, fmt.Errorf("marshal inventory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return 0, fmt.Errorf("write inventory: %w", err)
	}
	return len(entries), nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
