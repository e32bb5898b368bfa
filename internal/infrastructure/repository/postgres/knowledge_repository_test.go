package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*KnowledgeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &KnowledgeRepository{db: db}, mock, func() { _ = db.Close() }
}

func chunkColumns() []string {
	return []string{"id", "document_id", "source_name", "category", "content", "page", "trust_tier", "span_index", "rank"}
}

func TestSearchChunksMapsRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows(chunkColumns()).
		AddRow("chunk-1", "doc-1", "Sepsis Protocol", "protocol",
			"Obtain blood cultures before antibiotics.", 3, "generic_chunk",
			[]byte(`[{"start":0,"end":41,"page":3,"bbox":{"x0":10,"y0":20,"x1":200,"y1":40}}]`), 0.42)

	mock.ExpectQuery("SELECT id, document_id, source_name").
		WithArgs("sepsis | blood | cultures", "protocol", 10).
		WillReturnRows(rows)

	records, err := repo.SearchChunks(context.Background(), []string{"sepsis", "blood", "cultures"}, domain.CategoryProtocol, 10)
	if err != nil {
		t.Fatalf("SearchChunks() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.Trust != domain.TrustGenericChunk {
		t.Fatalf("expected generic_chunk trust, got %s", record.Trust)
	}
	if len(record.SpanIndex) != 1 || record.SpanIndex[0].Page != 3 {
		t.Fatalf("span index not decoded: %+v", record.SpanIndex)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchChunksSkipsEmptyQuery(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	records, err := repo.SearchChunks(context.Background(), []string{"", "a&b"}, domain.CategorySummary, 5)
	if err != nil {
		t.Fatalf("SearchChunks() error = %v", err)
	}
	if records != nil {
		t.Fatalf("expected no query issued, got %v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLookupMarksCuratedTrust(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "document_id", "source_name", "category", "answer", "page", "rank"}).
		AddRow("qa-1", "doc-2", "Pharmacy FAQ", "dosage",
			"Adult vancomycin loading dose is 25 mg/kg.", 1, 0.9)

	mock.ExpectQuery("SELECT id, document_id, source_name").
		WithArgs("vancomycin | loading<->dose", "dosage").
		WillReturnRows(rows)

	records, err := repo.Lookup(context.Background(), []string{"vancomycin", "loading dose"}, domain.CategoryDosage)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Trust != domain.TrustCuratedQA {
		t.Fatalf("expected curated trust, got %s", records[0].Trust)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchChunksWrapsStoreErrors(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, document_id, source_name").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.SearchChunks(context.Background(), []string{"sepsis"}, "", 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBBoxForReturnsGeometry(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"x0", "y0", "x1", "y1"}).AddRow(10.0, 20.0, 180.0, 36.0)
	mock.ExpectQuery("SELECT x0, y0, x1, y1").
		WithArgs("doc-1", 3, 120, 160).
		WillReturnRows(rows)

	bbox, err := repo.BBoxFor(context.Background(), "doc-1", 3, 120, 160)
	if err != nil {
		t.Fatalf("BBoxFor() error = %v", err)
	}
	if bbox == nil || bbox.X1 != 180.0 {
		t.Fatalf("unexpected bbox: %+v", bbox)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBuildTSQueryPhrases(t *testing.T) {
	got := buildTSQuery([]string{"stemi", "cath lab", "", "bad|term"})
	want := "stemi | cath<->lab"
	if got != want {
		t.Fatalf("buildTSQuery = %q, want %q", got, want)
	}
}
