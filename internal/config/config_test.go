package config

import (
	"testing"
	"time"
)

func TestLoadIncludesTierDefaults(t *testing.T) {
	t.Setenv("TIER_DIRECT_THRESHOLD", "")
	t.Setenv("TIER_CURATED_THRESHOLD", "")
	t.Setenv("TIER_HYBRID_THRESHOLD", "")
	t.Setenv("TIER_LOOSE_THRESHOLD", "")
	t.Setenv("OVERALL_DEADLINE", "")

	cfg := Load()
	if cfg.TierDirectThreshold != 0.80 {
		t.Fatalf("expected default direct threshold 0.80, got %f", cfg.TierDirectThreshold)
	}
	if cfg.TierCuratedThreshold != 0.70 {
		t.Fatalf("expected default curated threshold 0.70, got %f", cfg.TierCuratedThreshold)
	}
	if cfg.TierHybridThreshold != 0.60 {
		t.Fatalf("expected default hybrid threshold 0.60, got %f", cfg.TierHybridThreshold)
	}
	if cfg.TierLooseThreshold != 0.50 {
		t.Fatalf("expected default loose threshold 0.50, got %f", cfg.TierLooseThreshold)
	}
	if cfg.OverallDeadline != 30*time.Second {
		t.Fatalf("expected default deadline 30s, got %s", cfg.OverallDeadline)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("TIER_HYBRID_THRESHOLD", "0.55")
	t.Setenv("TIER_HYBRID_TIMEOUT", "20s")
	t.Setenv("HYBRID_CANDIDATES", "40")
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("CURATED_BACKEND", "neo4j")
	t.Setenv("CACHE_ENABLED", "false")

	cfg := Load()
	if cfg.TierHybridThreshold != 0.55 {
		t.Fatalf("expected hybrid threshold 0.55, got %f", cfg.TierHybridThreshold)
	}
	if cfg.TierHybridTimeout != 20*time.Second {
		t.Fatalf("expected hybrid timeout 20s, got %s", cfg.TierHybridTimeout)
	}
	if cfg.HybridCandidates != 40 {
		t.Fatalf("expected hybrid candidates 40, got %d", cfg.HybridCandidates)
	}
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected fusion rrf k 75, got %d", cfg.FusionRRFK)
	}
	if cfg.CuratedBackend != "neo4j" {
		t.Fatalf("expected curated backend neo4j, got %q", cfg.CuratedBackend)
	}
	if cfg.CacheEnabled {
		t.Fatalf("expected cache disabled")
	}
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("TIER_DIRECT_THRESHOLD", "not-a-number")
	t.Setenv("OVERALL_DEADLINE", "soon")

	cfg := Load()
	if cfg.TierDirectThreshold != 0.80 {
		t.Fatalf("expected fallback threshold 0.80, got %f", cfg.TierDirectThreshold)
	}
	if cfg.OverallDeadline != 30*time.Second {
		t.Fatalf("expected fallback deadline 30s, got %s", cfg.OverallDeadline)
	}
}
