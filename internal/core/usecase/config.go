package usecase

import "time"

// TierConfig holds one retrieval tier's acceptance threshold and deadline.
type TierConfig struct {
	Threshold float64
	Timeout   time.Duration
}

// Config controls the retrieval cascade.
type Config struct {
	Tiers                [4]TierConfig
	OverallDeadline      time.Duration
	HybridCandidates     int
	FusionRRFK           int
	CacheTTL             time.Duration
	CacheConfidenceFloor float64
	WorkerPoolSize       int
}

func DefaultConfig() Config {
	return Config{
		Tiers: [4]TierConfig{
			{Threshold: 0.80, Timeout: 5 * time.Second},  // direct lookup
			{Threshold: 0.70, Timeout: 5 * time.Second},  // curated knowledge base
			{Threshold: 0.60, Timeout: 15 * time.Second}, // hybrid document search
			{Threshold: 0.50, Timeout: 10 * time.Second}, // best-effort fallback
		},
		OverallDeadline:      30 * time.Second,
		HybridCandidates:     30,
		FusionRRFK:           60,
		CacheTTL:             15 * time.Minute,
		CacheConfidenceFloor: 0.6,
		WorkerPoolSize:       8,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	for i := range out.Tiers {
		if out.Tiers[i].Threshold <= 0 {
			out.Tiers[i].Threshold = def.Tiers[i].Threshold
		}
		if out.Tiers[i].Timeout <= 0 {
			out.Tiers[i].Timeout = def.Tiers[i].Timeout
		}
	}
	if out.OverallDeadline <= 0 {
		out.OverallDeadline = def.OverallDeadline
	}
	if out.HybridCandidates <= 0 {
		out.HybridCandidates = def.HybridCandidates
	}
	if out.FusionRRFK <= 0 {
		out.FusionRRFK = def.FusionRRFK
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = def.CacheTTL
	}
	if out.CacheConfidenceFloor <= 0 {
		out.CacheConfidenceFloor = def.CacheConfidenceFloor
	}
	if out.WorkerPoolSize <= 0 {
		out.WorkerPoolSize = def.WorkerPoolSize
	}
	return out
}
