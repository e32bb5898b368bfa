package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

type curatedFake struct {
	records []domain.KnowledgeRecord
	err     error
	calls   int
}

func (f *curatedFake) Lookup(context.Context, []string, domain.Category) ([]domain.KnowledgeRecord, error) {
	f.calls++
	return f.records, f.err
}

type documentsFake struct {
	records []domain.KnowledgeRecord
	err     error
	calls   int
}

func (f *documentsFake) SearchChunks(context.Context, []string, domain.Category, int) ([]domain.KnowledgeRecord, error) {
	f.calls++
	return f.records, f.err
}

type formsFake struct {
	refs []domain.DocumentRef
	err  error
}

func (f *formsFake) Resolve(context.Context, []string) ([]domain.DocumentRef, error) {
	return f.refs, f.err
}

type cacheFake struct {
	store map[string]domain.Answer
	sets  int
	gets  int
}

func newCacheFake() *cacheFake {
	return &cacheFake{store: make(map[string]domain.Answer)}
}

func (f *cacheFake) Get(_ context.Context, key string) (*domain.Answer, bool) {
	f.gets++
	answer, ok := f.store[key]
	if !ok {
		return nil, false
	}
	return &answer, true
}

func (f *cacheFake) Set(_ context.Context, key string, answer domain.Answer, _ time.Duration) {
	f.sets++
	f.store[key] = answer
}

const stemiRecordText = "STEMI Activation protocol: 1. Call cath lab at 555-123-4567 within 10 minutes. 2. Administer aspirin 325 mg."

func stemiRecord() domain.KnowledgeRecord {
	return domain.KnowledgeRecord{
		ID:         "kb-stemi",
		DocumentID: "doc-stemi",
		SourceName: "STEMI Activation",
		Category:   domain.CategoryProtocol,
		Text:       stemiRecordText,
		Trust:      domain.TrustCuratedQA,
	}
}

func newTestUseCase(t *testing.T, cfg Config, deps Deps) *AnswerUseCase {
	t.Helper()
	uc, err := NewAnswerUseCase(cfg, deps)
	if err != nil {
		t.Fatalf("NewAnswerUseCase() error = %v", err)
	}
	t.Cleanup(uc.Close)
	return uc
}

func TestAnswerCuratedProtocolAcceptedAtTierOne(t *testing.T) {
	curated := &curatedFake{records: []domain.KnowledgeRecord{stemiRecord()}}
	uc := newTestUseCase(t, DefaultConfig(), Deps{Curated: curated})

	answer := uc.Answer(context.Background(), "What is the STEMI protocol?")
	if answer.TierUsed != 1 {
		t.Fatalf("expected tier 1, got %d", answer.TierUsed)
	}
	if answer.Category != domain.CategoryProtocol {
		t.Fatalf("expected protocol, got %s", answer.Category)
	}
	if answer.Confidence < 0.7 {
		t.Fatalf("expected confidence >= 0.7, got %f", answer.Confidence)
	}
	if len(answer.Evidence) == 0 {
		t.Fatalf("expected evidence spans")
	}
	if answer.Validation.Verdict == domain.VerdictInvalid {
		t.Fatalf("expected non-invalid verdict, got %v", answer.Validation)
	}
}

func TestAnswerFormQueryResolvedAtTierZero(t *testing.T) {
	forms := &formsFake{refs: []domain.DocumentRef{
		{DocumentID: "doc-form", Filename: "blood_transfusion_consent.pdf", Title: "Blood Transfusion Consent", Score: 0.92},
	}}
	uc := newTestUseCase(t, DefaultConfig(), Deps{Forms: forms})

	answer := uc.Answer(context.Background(), "show me the blood transfusion consent form")
	if answer.Category != domain.CategoryForm {
		t.Fatalf("expected form category, got %s", answer.Category)
	}
	if answer.TierUsed != 0 {
		t.Fatalf("expected tier 0, got %d", answer.TierUsed)
	}
	if answer.Confidence < 0.8 {
		t.Fatalf("expected confidence >= 0.8, got %f", answer.Confidence)
	}
}

func TestAnswerGarbageQueryFallsToSafetyTier(t *testing.T) {
	uc := newTestUseCase(t, DefaultConfig(), Deps{
		Curated:   &curatedFake{},
		Documents: &documentsFake{},
	})

	answer := uc.Answer(context.Background(), "asdkfj")
	if answer.TierUsed != safetyTier {
		t.Fatalf("expected safety tier, got %d", answer.TierUsed)
	}
	if answer.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %f", answer.Confidence)
	}
	if answer.Category != domain.CategorySummary {
		t.Fatalf("expected summary category, got %s", answer.Category)
	}
	if answer.Text == "" {
		t.Fatalf("expected fallback guidance text")
	}
}

func TestAnswerNeverFailsWithNoStores(t *testing.T) {
	uc := newTestUseCase(t, DefaultConfig(), Deps{})
	answer := uc.Answer(context.Background(), "epinephrine dose for anaphylaxis")
	if answer.TierUsed != safetyTier {
		t.Fatalf("expected safety tier, got %d", answer.TierUsed)
	}
}

func TestAnswerInvalidCandidateTriggersSingleRetry(t *testing.T) {
	// Missing population qualifier makes the dosage candidate invalid.
	curated := &curatedFake{records: []domain.KnowledgeRecord{{
		ID:       "kb-epi",
		Category: domain.CategoryDosage,
		Text:     "Anaphylaxis dosing guideline: administer epinephrine 0.3 mg IM immediately, repeat every 5 minutes as indicated per hospital policy.",
		Trust:    domain.TrustCuratedQA,
	}}}
	documents := &documentsFake{}

	cfg := DefaultConfig()
	cfg.Tiers[1].Threshold = 0.4 // ensure the flawed candidate reaches the validator
	uc := newTestUseCase(t, cfg, Deps{Curated: curated, Documents: documents})

	answer := uc.Answer(context.Background(), "epinephrine dose for anaphylaxis")
	if answer.TierUsed != safetyTier {
		t.Fatalf("expected safety tier after failed retry, got %d", answer.TierUsed)
	}
	found := false
	for _, issue := range answer.Validation.Issues {
		if issue == "dosage missing population qualifier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected population qualifier issue, got %v", answer.Validation.Issues)
	}
	if documents.calls != 1 {
		t.Fatalf("expected exactly one retry tier attempt, got %d document store calls", documents.calls)
	}
}

func TestAnswerRetrySucceedsOnNextTier(t *testing.T) {
	curated := &curatedFake{records: []domain.KnowledgeRecord{{
		ID:       "kb-epi",
		Category: domain.CategoryDosage,
		Text:     "Anaphylaxis dosing guideline: administer epinephrine 0.3 mg IM immediately, repeat every 5 minutes as indicated per hospital policy.",
		Trust:    domain.TrustCuratedQA,
	}}}
	documents := &documentsFake{records: []domain.KnowledgeRecord{{
		ID:       "chunk-epi",
		Category: domain.CategoryDosage,
		Text:     "Adult anaphylaxis dosing guideline: administer epinephrine 0.3 mg IM into the lateral thigh; pediatric dosing is 0.01 mg/kg as indicated per hospital policy.",
		Trust:    domain.TrustStructuredProtocol,
	}}}

	cfg := DefaultConfig()
	cfg.Tiers[1].Threshold = 0.4
	cfg.Tiers[2].Threshold = 0.3
	uc := newTestUseCase(t, cfg, Deps{Curated: curated, Documents: documents})

	answer := uc.Answer(context.Background(), "epinephrine dose for anaphylaxis")
	if answer.TierUsed != 2 {
		t.Fatalf("expected tier 2 after retry, got %d", answer.TierUsed)
	}
	if answer.Validation.Verdict == domain.VerdictInvalid {
		t.Fatalf("expected acceptable verdict, got %v", answer.Validation)
	}
}

func TestAnswerTierErrorsAreAbsorbed(t *testing.T) {
	curated := &curatedFake{err: errors.New("kb down")}
	documents := &documentsFake{err: errors.New("index down")}
	uc := newTestUseCase(t, DefaultConfig(), Deps{Curated: curated, Documents: documents})

	answer := uc.Answer(context.Background(), "What is the STEMI protocol?")
	if answer.TierUsed != safetyTier {
		t.Fatalf("expected safety tier when all stores fail, got %d", answer.TierUsed)
	}
	if documents.calls < 1 {
		t.Fatalf("expected later tiers attempted despite earlier failure")
	}
}

func TestAnswerDeadlineReturnsSafetyFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverallDeadline = time.Nanosecond
	curated := &curatedFake{records: []domain.KnowledgeRecord{stemiRecord()}}
	uc := newTestUseCase(t, cfg, Deps{Curated: curated})

	time.Sleep(time.Millisecond)
	answer := uc.Answer(context.Background(), "What is the STEMI protocol?")
	if answer.TierUsed != safetyTier {
		t.Fatalf("expected safety tier on deadline, got %d", answer.TierUsed)
	}
}

func TestAnswerCachesHighConfidenceNonFormAnswers(t *testing.T) {
	cache := newCacheFake()
	curated := &curatedFake{records: []domain.KnowledgeRecord{stemiRecord()}}
	uc := newTestUseCase(t, DefaultConfig(), Deps{Curated: curated, Cache: cache})

	first := uc.Answer(context.Background(), "What is the STEMI protocol?")
	if cache.sets != 1 {
		t.Fatalf("expected one cache set, got %d", cache.sets)
	}

	second := uc.Answer(context.Background(), "What is the STEMI protocol?")
	if curated.calls != 1 {
		t.Fatalf("expected cache hit to skip retrieval, got %d curated calls", curated.calls)
	}
	if first.Text != second.Text || first.TierUsed != second.TierUsed {
		t.Fatalf("cache returned a different answer")
	}
}

func TestAnswerNeverCachesFormAnswers(t *testing.T) {
	cache := newCacheFake()
	forms := &formsFake{refs: []domain.DocumentRef{
		{DocumentID: "doc-form", Filename: "consent.pdf", Title: "Consent", Score: 0.95},
	}}
	uc := newTestUseCase(t, DefaultConfig(), Deps{Forms: forms, Cache: cache})

	uc.Answer(context.Background(), "show me the consent form")
	if cache.sets != 0 {
		t.Fatalf("expected no cache writes for form answers, got %d", cache.sets)
	}
	if cache.gets != 0 {
		t.Fatalf("expected no cache reads for form answers, got %d", cache.gets)
	}
}

func TestAnswerNeverCachesSafetyFallback(t *testing.T) {
	cache := newCacheFake()
	uc := newTestUseCase(t, DefaultConfig(), Deps{Cache: cache})

	uc.Answer(context.Background(), "asdkfj")
	if cache.sets != 0 {
		t.Fatalf("expected no cache writes for fallback answers, got %d", cache.sets)
	}
}

func TestCacheablePolicy(t *testing.T) {
	cases := []struct {
		name   string
		answer domain.Answer
		want   bool
	}{
		{"high confidence protocol", domain.Answer{Category: domain.CategoryProtocol, Confidence: 0.8, TierUsed: 1}, true},
		{"form answer", domain.Answer{Category: domain.CategoryForm, Confidence: 0.9, TierUsed: 0}, false},
		{"below floor", domain.Answer{Category: domain.CategoryProtocol, Confidence: 0.3, TierUsed: 2}, false},
		{"safety fallback", domain.Answer{Category: domain.CategorySummary, Confidence: 0.9, TierUsed: safetyTier}, false},
	}
	for _, tc := range cases {
		if got := cacheable(tc.answer, 0.6); got != tc.want {
			t.Fatalf("%s: cacheable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFuseRecordsRRFDeduplicatesByID(t *testing.T) {
	semantic := []domain.KnowledgeRecord{
		{ID: "a", DocumentID: "d1", Text: "a"},
		{ID: "b", DocumentID: "d2", Text: "b"},
	}
	lexical := []domain.KnowledgeRecord{
		{ID: "b", DocumentID: "d2", Text: "b"},
		{ID: "c", DocumentID: "d3", Text: "c"},
	}
	fused := fuseRecordsRRF(semantic, lexical, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused records, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Fatalf("expected record in both lists first, got %s", fused[0].ID)
	}
}
