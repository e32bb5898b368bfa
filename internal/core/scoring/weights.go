package scoring

import "github.com/kirillkom/clinical-qa/internal/core/domain"

// Weights combines the seven confidence factors into one score. Each weight
// set sums to 1.0 so the weighted sum stays in [0,1] without rescaling.
type Weights struct {
	SourceReliability       float64
	ContentSpecificity      float64
	TerminologyMatch        float64
	CategoryAlignment       float64
	InformationCompleteness float64
	AuthorityIndicators     float64
	UncertaintyMarkers      float64
}

var defaultWeights = Weights{
	SourceReliability:       0.25,
	ContentSpecificity:      0.20,
	TerminologyMatch:        0.15,
	CategoryAlignment:       0.15,
	InformationCompleteness: 0.10,
	AuthorityIndicators:     0.10,
	UncertaintyMarkers:      0.05,
}

// categoryWeights overrides the defaults where a category cares more about a
// particular factor: dosage answers live or die on specificity and authority,
// contact answers on alignment and specificity, protocol answers on source
// reliability.
var categoryWeights = map[domain.Category]Weights{
	domain.CategoryDosage: {
		SourceReliability:       0.20,
		ContentSpecificity:      0.30,
		TerminologyMatch:        0.15,
		CategoryAlignment:       0.10,
		InformationCompleteness: 0.05,
		AuthorityIndicators:     0.15,
		UncertaintyMarkers:      0.05,
	},
	domain.CategoryContact: {
		SourceReliability:       0.15,
		ContentSpecificity:      0.25,
		TerminologyMatch:        0.15,
		CategoryAlignment:       0.25,
		InformationCompleteness: 0.10,
		AuthorityIndicators:     0.05,
		UncertaintyMarkers:      0.05,
	},
	domain.CategoryProtocol: {
		SourceReliability:       0.30,
		ContentSpecificity:      0.20,
		TerminologyMatch:        0.15,
		CategoryAlignment:       0.15,
		InformationCompleteness: 0.10,
		AuthorityIndicators:     0.05,
		UncertaintyMarkers:      0.05,
	},
}

// WeightsFor returns the weight set for a category, falling back to defaults.
func WeightsFor(category domain.Category) Weights {
	if w, ok := categoryWeights[category]; ok {
		return w
	}
	return defaultWeights
}

// Combine applies the weights to a factor set and clips to [0,1].
func (w Weights) Combine(f domain.ConfidenceFactors) float64 {
	score := w.SourceReliability*f.SourceReliability +
		w.ContentSpecificity*f.ContentSpecificity +
		w.TerminologyMatch*f.TerminologyMatch +
		w.CategoryAlignment*f.CategoryAlignment +
		w.InformationCompleteness*f.InformationCompleteness +
		w.AuthorityIndicators*f.AuthorityIndicators +
		w.UncertaintyMarkers*f.UncertaintyMarkers
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
