package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// tierOutcome is the explicit result of one tier attempt. A nil candidate
// with a nil error means the tier simply found nothing.
type tierOutcome struct {
	candidate *domain.CandidateAnswer
	err       error
}

// runTier executes one tier under its own deadline. Errors never escape the
// orchestrator loop; they are folded into the outcome.
func (uc *AnswerUseCase) runTier(ctx context.Context, tier int, query domain.Query) tierOutcome {
	tierCtx, cancel := context.WithTimeout(ctx, uc.cfg.Tiers[tier].Timeout)
	defer cancel()

	var candidate *domain.CandidateAnswer
	var err error
	switch tier {
	case 0:
		candidate, err = uc.tierDirect(tierCtx, query)
	case 1:
		candidate, err = uc.tierCurated(tierCtx, query)
	case 2:
		candidate, err = uc.tierHybrid(tierCtx, query)
	case 3:
		candidate, err = uc.tierLoose(tierCtx, query)
	default:
		err = fmt.Errorf("unknown tier %d", tier)
	}
	if err != nil && tierCtx.Err() != nil {
		err = domain.WrapError(domain.ErrTierTimeout, fmt.Sprintf("tier %d", tier), err)
	}
	return tierOutcome{candidate: candidate, err: err}
}

// tierDirect resolves document-retrieval style queries against the form
// index. Non-form queries skip this tier.
func (uc *AnswerUseCase) tierDirect(ctx context.Context, query domain.Query) (*domain.CandidateAnswer, error) {
	if uc.forms == nil || query.Category != domain.CategoryForm {
		return nil, nil
	}
	refs, err := uc.forms.Resolve(ctx, query.ExpandedTerms)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "form index resolve", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	best := refs[0]
	for _, ref := range refs[1:] {
		if ref.Score > best.Score {
			best = ref
		}
	}

	confidence := best.Score
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	title := best.Title
	if title == "" {
		title = best.Filename
	}
	return &domain.CandidateAnswer{
		Text: fmt.Sprintf("The document you need is %q (%s).", title, best.Filename),
		Tier: 0,
		Sources: []domain.KnowledgeRecord{{
			ID:         best.DocumentID,
			DocumentID: best.DocumentID,
			SourceName: title,
			Category:   domain.CategoryForm,
			Text:       fmt.Sprintf("%s (%s)", title, best.Filename),
			Trust:      domain.TrustCuratedQA,
		}},
		RawScore:   best.Score,
		Factors:    domain.ConfidenceFactors{SourceReliability: domain.TrustCuratedQA.SourceReliability()},
		Confidence: confidence,
		Level:      domain.LevelForConfidence(confidence),
	}, nil
}

// tierCurated matches the query against the hand-authored Q&A store.
func (uc *AnswerUseCase) tierCurated(ctx context.Context, query domain.Query) (*domain.CandidateAnswer, error) {
	if uc.curated == nil {
		return nil, nil
	}
	records, err := uc.curated.Lookup(ctx, query.ExpandedTerms, query.Category)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "curated lookup", err)
	}
	return uc.scorer.Best(query, records, 1), nil
}

// tierHybrid fans lexical and semantic lookups out through the worker pool,
// fuses the result lists with RRF, and scores the fused set. A missing
// embedder or vector store degrades the tier to lexical-only retrieval; a
// one-sided store failure degrades it to the surviving side.
func (uc *AnswerUseCase) tierHybrid(ctx context.Context, query domain.Query) (*domain.CandidateAnswer, error) {
	if uc.documents == nil {
		return nil, nil
	}

	var (
		wg       sync.WaitGroup
		lexical  []domain.KnowledgeRecord
		semantic []domain.KnowledgeRecord
		lexErr   error
		semErr   error
	)

	wg.Add(1)
	uc.submit(func() {
		defer wg.Done()
		lexical, lexErr = uc.documents.SearchChunks(ctx, query.ExpandedTerms, query.Category, uc.cfg.HybridCandidates)
	})

	semanticEnabled := uc.embedder != nil && uc.vectors != nil
	if semanticEnabled {
		wg.Add(1)
		uc.submit(func() {
			defer wg.Done()
			vector, err := uc.embedder.EmbedQuery(ctx, query.RawText)
			if err != nil {
				semErr = err
				return
			}
			semantic, semErr = uc.vectors.SearchSimilar(ctx, vector, uc.cfg.HybridCandidates)
		})
	}
	wg.Wait()

	if lexErr != nil && (!semanticEnabled || semErr != nil) {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "hybrid search", lexErr)
	}
	if lexErr != nil {
		uc.logger.Warn("hybrid_lexical_failed", "error", lexErr)
	}
	if semanticEnabled && semErr != nil {
		uc.logger.Warn("hybrid_semantic_failed", "error", semErr)
	}

	fused := trimRecords(fuseRecordsRRF(semantic, lexical, uc.cfg.FusionRRFK), uc.cfg.HybridCandidates)
	return uc.scorer.Best(query, fused, 2), nil
}

// tierLoose re-queries the document store with the raw query's own terms,
// no category filter, and a widened limit.
func (uc *AnswerUseCase) tierLoose(ctx context.Context, query domain.Query) (*domain.CandidateAnswer, error) {
	if uc.documents == nil {
		return nil, nil
	}
	terms := textutil.SignificantTerms(query.RawText)
	if len(terms) == 0 {
		terms = query.ExpandedTerms
	}
	records, err := uc.documents.SearchChunks(ctx, terms, "", uc.cfg.HybridCandidates*2)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "loose search", err)
	}
	return uc.scorer.Best(query, records, 3), nil
}

// submit runs a task on the bounded pool, falling back to a plain goroutine
// when the pool is saturated or absent.
func (uc *AnswerUseCase) submit(task func()) {
	if uc.pool != nil {
		if err := uc.pool.Submit(task); err == nil {
			return
		}
	}
	go task()
}
