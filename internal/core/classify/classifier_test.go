package classify

import (
	"testing"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

func TestClassifyProtocolQuery(t *testing.T) {
	c := New()
	category, confidence, evidence := c.Classify("What is the STEMI protocol?")
	if category != domain.CategoryProtocol {
		t.Fatalf("expected protocol, got %s", category)
	}
	if confidence <= 0.05 {
		t.Fatalf("expected confidence above epsilon, got %f", confidence)
	}
	if len(evidence) == 0 {
		t.Fatalf("expected classification evidence")
	}
}

func TestClassifyFormWinsOverProtocolOnConsent(t *testing.T) {
	c := New()
	category, confidence, _ := c.Classify("show me the blood transfusion consent form")
	if category != domain.CategoryForm {
		t.Fatalf("expected form by priority, got %s", category)
	}
	if confidence < 0.8 {
		t.Fatalf("expected strong form signal, got %f", confidence)
	}
}

func TestClassifyNoSignalFallsToSummary(t *testing.T) {
	c := New()
	category, confidence, _ := c.Classify("asdkfj")
	if category != domain.CategorySummary {
		t.Fatalf("expected summary fallback, got %s", category)
	}
	if confidence < 0.1 || confidence > 0.3 {
		t.Fatalf("expected no-signal confidence in [0.1,0.3], got %f", confidence)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New()
	const query = "epinephrine dose for anaphylaxis"
	cat1, conf1, _ := c.Classify(query)
	for i := 0; i < 10; i++ {
		cat2, conf2, _ := c.Classify(query)
		if cat1 != cat2 || conf1 != conf2 {
			t.Fatalf("classification not deterministic: (%s,%f) vs (%s,%f)", cat1, conf1, cat2, conf2)
		}
	}
	if cat1 != domain.CategoryDosage {
		t.Fatalf("expected dosage, got %s", cat1)
	}
}

func TestClassifyScoreCappedAtOne(t *testing.T) {
	c := New()
	_, confidence, _ := c.Classify("form consent document paperwork checklist template pdf")
	if confidence > 1.0 {
		t.Fatalf("expected capped score, got %f", confidence)
	}
	if confidence != 1.0 {
		t.Fatalf("expected saturated score 1.0, got %f", confidence)
	}
}

func TestBuildQueryPopulatesAllFields(t *testing.T) {
	c := New()
	query := c.BuildQuery("What is the DKA protocol?")
	if query.Category != domain.CategoryProtocol {
		t.Fatalf("expected protocol, got %s", query.Category)
	}
	if query.NormalizedText == "" || len(query.ExpandedTerms) == 0 {
		t.Fatalf("expected normalized text and expanded terms")
	}
}
