package usecase

import "time"

// PipelineMetrics receives pipeline observations. Implementations must be
// safe for concurrent use.
type PipelineMetrics interface {
	TierAttempt(tier int)
	TierAccepted(tier int)
	TierFailure(tier int, reason string)
	Verdict(verdict string)
	CacheHit()
	ObserveAnswer(tier int, confidence float64, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) TierAttempt(int)                         {}
func (noopMetrics) TierAccepted(int)                        {}
func (noopMetrics) TierFailure(int, string)                 {}
func (noopMetrics) Verdict(string)                          {}
func (noopMetrics) CacheHit()                               {}
func (noopMetrics) ObserveAnswer(int, float64, time.Duration) {}
