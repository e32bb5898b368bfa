package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/clinical-qa/internal/core/classify"
	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/core/evidence"
	"github.com/kirillkom/clinical-qa/internal/core/ports"
	"github.com/kirillkom/clinical-qa/internal/core/scoring"
	"github.com/kirillkom/clinical-qa/internal/core/validate"
)

// Deps collects the orchestrator's collaborators. Vectors, Embedder, Forms,
// Curated, Cache and Metrics are optional; the pipeline degrades without
// them instead of failing.
type Deps struct {
	Classifier *classify.Classifier
	Scorer     *scoring.Scorer
	Validator  *validate.Validator
	Evidence   *evidence.Mapper

	Documents ports.DocumentStore
	Vectors   ports.VectorStore
	Embedder  ports.Embedder
	Curated   ports.CuratedKBStore
	Forms     ports.FormIndex
	Cache     ports.ResponseCache

	Metrics PipelineMetrics
	Logger  *slog.Logger
}

// AnswerUseCase sequences the retrieval tiers, applies acceptance
// thresholds, validates the chosen candidate, and attaches evidence spans.
// Answer never fails: every failure mode degrades to the safety fallback.
type AnswerUseCase struct {
	cfg Config

	classifier *classify.Classifier
	scorer     *scoring.Scorer
	validator  *validate.Validator
	evidence   *evidence.Mapper

	documents ports.DocumentStore
	vectors   ports.VectorStore
	embedder  ports.Embedder
	curated   ports.CuratedKBStore
	forms     ports.FormIndex
	cache     ports.ResponseCache

	metrics PipelineMetrics
	logger  *slog.Logger
	pool    *ants.Pool
}

func NewAnswerUseCase(cfg Config, deps Deps) (*AnswerUseCase, error) {
	cfg = cfg.normalize()

	if deps.Classifier == nil {
		deps.Classifier = classify.New()
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewScorer()
	}
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	if deps.Evidence == nil {
		deps.Evidence = evidence.NewMapper(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &AnswerUseCase{
		cfg:        cfg,
		classifier: deps.Classifier,
		scorer:     deps.Scorer,
		validator:  deps.Validator,
		evidence:   deps.Evidence,
		documents:  deps.Documents,
		vectors:    deps.Vectors,
		embedder:   deps.Embedder,
		curated:    deps.Curated,
		forms:      deps.Forms,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		pool:       pool,
	}, nil
}

// Close releases the worker pool.
func (uc *AnswerUseCase) Close() {
	if uc.pool != nil {
		uc.pool.Release()
	}
}

// Answer runs the full pipeline for one query. It always returns a valid
// Answer value, worst case the tier-4 safety fallback.
func (uc *AnswerUseCase) Answer(ctx context.Context, rawQuery string) domain.Answer {
	start := time.Now()
	query := uc.classifier.BuildQuery(rawQuery)

	if uc.cache != nil && query.Category != domain.CategoryForm {
		if cached, ok := uc.cache.Get(ctx, cacheKey(query)); ok && cached != nil {
			uc.metrics.CacheHit()
			return *cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.OverallDeadline)
	defer cancel()

	answer := uc.runCascade(ctx, query)
	uc.metrics.ObserveAnswer(answer.TierUsed, answer.Confidence, time.Since(start))

	if uc.cache != nil && cacheable(answer, uc.cfg.CacheConfidenceFloor) {
		uc.cache.Set(ctx, cacheKey(query), answer, uc.cfg.CacheTTL)
	}
	return answer
}

// runCascade walks the tiers in order. A tier that errors, times out, or
// returns nothing is treated identically: move on. The first candidate
// clearing its tier threshold goes to the validator; an invalid verdict buys
// exactly one attempt at the next untried tier before the safety fallback.
func (uc *AnswerUseCase) runCascade(ctx context.Context, query domain.Query) domain.Answer {
	var issues []string
	retriesLeft := -1 // unbounded until the validator rejects a candidate

	for tier := 0; tier < len(uc.cfg.Tiers); tier++ {
		if ctx.Err() != nil {
			issues = append(issues, "request deadline exceeded")
			break
		}
		if retriesLeft == 0 {
			break
		}

		uc.metrics.TierAttempt(tier)
		outcome := uc.runTier(ctx, tier, query)
		if retriesLeft > 0 {
			retriesLeft--
		}

		if outcome.err != nil {
			uc.metrics.TierFailure(tier, failureReason(outcome.err))
			uc.logger.Warn("tier_failed", "tier", tier, "category", query.Category, "error", outcome.err)
			continue
		}
		if outcome.candidate == nil {
			continue
		}
		if outcome.candidate.Confidence < uc.cfg.Tiers[tier].Threshold {
			uc.logger.Debug("tier_below_threshold",
				"tier", tier,
				"confidence", outcome.candidate.Confidence,
				"threshold", uc.cfg.Tiers[tier].Threshold,
			)
			continue
		}

		candidate := *outcome.candidate
		validation := uc.validator.Validate(candidate, query.Category)
		uc.metrics.Verdict(string(validation.Verdict))

		if validation.Verdict == domain.VerdictInvalid {
			issues = append(issues, validation.Issues...)
			uc.logger.Warn("candidate_rejected", "tier", tier, "issues", validation.Issues)
			if retriesLeft == -1 {
				retriesLeft = 1
			}
			continue
		}

		uc.metrics.TierAccepted(tier)
		return uc.finalize(ctx, query, candidate, validation)
	}

	uc.metrics.TierAccepted(safetyTier)
	if len(issues) == 0 {
		issues = append(issues, "no tier produced an acceptable answer")
	}
	return safetyAnswer(query, issues)
}

// finalize attaches evidence spans and assembles the outgoing Answer.
// Evidence mapping is best effort and never fails the answer.
func (uc *AnswerUseCase) finalize(ctx context.Context, query domain.Query, candidate domain.CandidateAnswer, validation domain.ValidationResult) domain.Answer {
	spans := uc.evidence.MapEvidence(ctx, candidate.Text, candidate.Sources)
	if spans == nil {
		spans = []domain.EvidenceSpan{}
	}
	return domain.Answer{
		Text:       candidate.Text,
		Category:   query.Category,
		Confidence: candidate.Confidence,
		Level:      candidate.Level,
		TierUsed:   candidate.Tier,
		Evidence:   spans,
		Validation: validation,
	}
}

func failureReason(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrTierTimeout):
		return "timeout"
	case domain.IsKind(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
