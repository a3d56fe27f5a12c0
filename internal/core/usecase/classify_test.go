package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

func TestClassifyParsesWellFormedResponse(t *testing.T) {
	router := &fakeRouter{responses: []string{
		`{"document_type": "medical_clearance", "confidence": 0.92,
		  "alternatives": [{"document_type": "license", "confidence": 0.05}],
		  "reasoning": "physician letterhead and clearance language"}`,
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{MaxTokens: 512}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "CLEARED FOR COMPETITION ...")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.DocumentType != domain.TypeMedicalClearance {
		t.Fatalf("expected medical_clearance, got %s", res.DocumentType)
	}
	if res.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", res.Confidence)
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].DocumentType != domain.TypeLicense {
		t.Fatalf("unexpected alternatives: %v", res.Alternatives)
	}
	if !router.lastReq.AllowFallback {
		t.Fatalf("classification must allow provider fallback")
	}
}

func TestClassifyCoercesUnknownLabelToOther(t *testing.T) {
	router := &fakeRouter{responses: []string{
		`{"document_type": "tax_return", "confidence": 0.8}`,
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "some text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.DocumentType != domain.TypeOther {
		t.Fatalf("expected coercion to other, got %s", res.DocumentType)
	}
	if res.Reasoning == "" {
		t.Fatalf("expected coercion note in reasoning")
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	router := &fakeRouter{responses: []string{
		`{"document_type": "contract", "confidence": 1.7}`,
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "bout agreement")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("expected clamped confidence 1.0, got %v", res.Confidence)
	}
}

func TestClassifyTieBreaksInCanonicalOrder(t *testing.T) {
	// license is declared after photo_id; at equal confidence photo_id
	// must win the primary slot.
	router := &fakeRouter{responses: []string{
		`{"document_type": "license", "confidence": 0.5,
		  "alternatives": [{"document_type": "photo_id", "confidence": 0.5}]}`,
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "state issued card")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.DocumentType != domain.TypePhotoID {
		t.Fatalf("expected photo_id to win the tie, got %s", res.DocumentType)
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].DocumentType != domain.TypeLicense {
		t.Fatalf("expected license as alternative, got %v", res.Alternatives)
	}
}

func TestClassifyCapsAlternatives(t *testing.T) {
	router := &fakeRouter{responses: []string{
		`{"document_type": "contract", "confidence": 0.9, "alternatives": [
			{"document_type": "license", "confidence": 0.4},
			{"document_type": "photo_id", "confidence": 0.3},
			{"document_type": "insurance_certificate", "confidence": 0.2},
			{"document_type": "weigh_in_record", "confidence": 0.1}
		]}`,
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "text")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(res.Alternatives) != maxAlternatives {
		t.Fatalf("expected %d alternatives, got %d", maxAlternatives, len(res.Alternatives))
	}
	for i := 1; i < len(res.Alternatives); i++ {
		if res.Alternatives[i].Confidence > res.Alternatives[i-1].Confidence {
			t.Fatalf("alternatives not sorted descending: %v", res.Alternatives)
		}
	}
}

func TestClassifyScrapesJSONFromProse(t *testing.T) {
	router := &fakeRouter{responses: []string{
		"Sure! Here is the classification:\n```json\n" +
			`{"document_type": "weigh_in_record", "confidence": 0.77}` +
			"\n```",
	}}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	res, err := c.Classify(context.Background(), "doc-1", "official weight 155.0 lbs")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.DocumentType != domain.TypeWeighInRecord {
		t.Fatalf("expected weigh_in_record, got %s", res.DocumentType)
	}
}

func TestClassifyWrapsProviderFailure(t *testing.T) {
	router := &fakeRouter{err: domain.WrapError(domain.ErrProvider, "complete", errors.New("both providers down"))}
	c := NewClassifier(router, &fakeRecognizer{}, CompletionOptions{}, nil)

	_, err := c.Classify(context.Background(), "doc-1", "text")
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("expected classification error kind, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("provider cause should stay unwrappable, got %v", err)
	}
}

func TestClassifyStoredPropagatesOCRFailure(t *testing.T) {
	rec := &fakeRecognizer{textErr: domain.WrapError(domain.ErrOCR, "extract", errors.New("unreadable scan"))}
	router := &fakeRouter{}
	c := NewClassifier(router, rec, CompletionOptions{}, nil)

	_, err := c.ClassifyStored(context.Background(), "doc-1", "docs/doc-1.pdf")
	if !domain.IsKind(err, domain.ErrOCR) {
		t.Fatalf("expected ocr error, got %v", err)
	}
	if router.calls != 0 {
		t.Fatalf("no completion call should happen after OCR failure")
	}
}
