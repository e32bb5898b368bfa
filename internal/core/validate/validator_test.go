package validate

import (
	"strings"
	"testing"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

func candidate(text, sourceText string) domain.CandidateAnswer {
	return domain.CandidateAnswer{
		Text: text,
		Sources: []domain.KnowledgeRecord{
			{ID: "src", DocumentID: "doc-1", Text: sourceText, Trust: domain.TrustCuratedQA},
		},
	}
}

func hasIssue(result domain.ValidationResult, fragment string) bool {
	for _, issue := range result.Issues {
		if strings.Contains(issue, fragment) {
			return true
		}
	}
	return false
}

func TestValidateGroundedAnswerIsValid(t *testing.T) {
	v := New()
	source := "STEMI activation: call the cath lab at 555-123-4567 within 10 minutes of arrival. Administer aspirin 325 mg orally."
	result := v.Validate(candidate("Call the cath lab at 555-123-4567 within 10 minutes. Administer aspirin 325 mg orally.", source), domain.CategoryProtocol)
	if result.Verdict != domain.VerdictValid {
		t.Fatalf("expected valid, got %s with issues %v", result.Verdict, result.Issues)
	}
	if !result.Grounded {
		t.Fatalf("expected grounded result")
	}
}

func TestValidateUnsupportedFactsInvalid(t *testing.T) {
	v := New()
	source := "The hospital cafeteria serves lunch at noon."
	answer := "Administer vancomycin 15 mg per kg IV. Monitor trough levels every 4 hours. Adjust dose for renal function in adult patients."
	result := v.Validate(candidate(answer, source), domain.CategoryDosage)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid, got %s", result.Verdict)
	}
	if !result.Hallucination {
		t.Fatalf("expected hallucination flag")
	}
	if !hasIssue(result, "unsupported fact") {
		t.Fatalf("expected unsupported fact issue, got %v", result.Issues)
	}
}

func TestValidateDosageMissingPopulationQualifier(t *testing.T) {
	v := New()
	source := "Give epinephrine 0.3 mg IM for anaphylaxis."
	result := v.Validate(candidate("Give epinephrine 0.3 mg IM for anaphylaxis.", source), domain.CategoryDosage)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid, got %s", result.Verdict)
	}
	if !hasIssue(result, "dosage missing population qualifier") {
		t.Fatalf("expected population qualifier issue, got %v", result.Issues)
	}
}

func TestValidateDosageMissingDoseUnit(t *testing.T) {
	v := New()
	source := "Epinephrine is indicated for adult anaphylaxis."
	result := v.Validate(candidate("Epinephrine is indicated for adult anaphylaxis.", source), domain.CategoryDosage)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid, got %s", result.Verdict)
	}
	if !hasIssue(result, "unit-qualified numeric dose") {
		t.Fatalf("expected dose unit issue, got %v", result.Issues)
	}
}

func TestValidateProtocolTimeCriticalNeedsTimingOrContact(t *testing.T) {
	v := New()
	source := "The STEMI pathway involves activation of the cath lab team."
	result := v.Validate(candidate("The STEMI pathway involves activation of the cath lab team.", source), domain.CategoryProtocol)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid, got %s", result.Verdict)
	}
	if !hasIssue(result, "lacks numeric timing or contact") {
		t.Fatalf("expected timing/contact issue, got %v", result.Issues)
	}
}

func TestValidateProtocolWithTimingPasses(t *testing.T) {
	v := New()
	source := "STEMI activation requires door-to-balloon within 90 minutes of arrival."
	result := v.Validate(candidate("STEMI activation requires door-to-balloon within 90 minutes.", source), domain.CategoryProtocol)
	if result.Verdict == domain.VerdictInvalid {
		t.Fatalf("expected non-invalid verdict, got issues %v", result.Issues)
	}
}

func TestValidateCriteriaTooShort(t *testing.T) {
	v := New()
	result := v.Validate(candidate("ICU criteria: pH under 7.1.", "ICU criteria: pH under 7.1."), domain.CategoryCriteria)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid for short criteria, got %s", result.Verdict)
	}
	if !hasIssue(result, "too short") {
		t.Fatalf("expected length issue, got %v", result.Issues)
	}
}

func TestValidateHedgingIsNeedsReview(t *testing.T) {
	v := New()
	source := "Heparin infusion protocol: initiate at 18 units per kg per hour. Monitor aPTT every 6 hours and titrate the infusion."
	answer := "Initiate heparin infusion at 18 units per kg per hour. Monitor aPTT every 6 hours. This may possibly need titration of the infusion."
	result := v.Validate(candidate(answer, source), domain.CategorySummary)
	if result.Verdict != domain.VerdictNeedsReview {
		t.Fatalf("expected needs_review, got %s with issues %v", result.Verdict, result.Issues)
	}
	if !hasIssue(result, "hedging language") {
		t.Fatalf("expected hedging issue, got %v", result.Issues)
	}
}

func TestValidateDisclaimerFlagged(t *testing.T) {
	v := New()
	source := "Ibuprofen 400 mg every 6 hours for adult patients. Consult your doctor before use."
	answer := "Take ibuprofen 400 mg every 6 hours for adult patients. Consult your doctor before use."
	result := v.Validate(candidate(answer, source), domain.CategorySummary)
	if !hasIssue(result, "canned disclaimer") {
		t.Fatalf("expected disclaimer issue, got %v", result.Issues)
	}
	if len(result.SafetyFlags) == 0 {
		t.Fatalf("expected safety flag")
	}
}

func TestValidateEmptyAnswerInvalid(t *testing.T) {
	v := New()
	result := v.Validate(candidate("   ", "anything"), domain.CategorySummary)
	if result.Verdict != domain.VerdictInvalid {
		t.Fatalf("expected invalid for empty answer, got %s", result.Verdict)
	}
}
