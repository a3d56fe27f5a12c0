package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

// CompletionOptions carry the token/temperature budget for one consumer
// of the completion router.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

const maxAlternatives = 3

// Classifier determines a document's type from OCR text via the
// completion router.
type Classifier struct {
	router ports.CompletionRouter
	ocr    ports.TextRecognizer
	opts   CompletionOptions
	log    *slog.Logger
}

func NewClassifier(router ports.CompletionRouter, ocr ports.TextRecognizer, opts CompletionOptions, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{router: router, ocr: ocr, opts: opts, log: log}
}

// ClassifyStored runs OCR on the stored document and classifies the text.
func (c *Classifier) ClassifyStored(ctx context.Context, documentID, storageKey string) (domain.ClassificationResult, error) {
	ocrRes, err := c.ocr.ExtractText(ctx, storageKey)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return c.Classify(ctx, documentID, ocrRes.Text)
}

// Classify picks exactly one label from the closed document-type enum.
// Out-of-enum labels coerce to "other" rather than failing; the coercion
// is recorded in the result's reasoning.
func (c *Classifier) Classify(ctx context.Context, documentID, ocrText string) (domain.ClassificationResult, error) {
	c.log.Info("classifying document", "document_id", documentID, "text_len", len(ocrText))

	raw, err := c.router.Complete(ctx, ports.CompletionRequest{
		Prompt:        buildClassificationPrompt(ocrText),
		SystemPrompt:  classificationSystemPrompt,
		MaxTokens:     c.opts.MaxTokens,
		Temperature:   c.opts.Temperature,
		AllowFallback: true,
	})
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrClassification, "classify document", err)
	}

	result, err := parseClassification(raw)
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrClassification, "classify document", err)
	}

	c.log.Info("document classified",
		"document_id", documentID,
		"document_type", result.DocumentType,
		"confidence", result.Confidence,
	)
	return result, nil
}

const classificationSystemPrompt = "You are a document classifier for combat sports compliance documents. " +
	"Respond with a single JSON object and nothing else."

func buildClassificationPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Classify the document below into exactly one of these types:\n")
	for _, dt := range domain.CanonicalDocumentTypes {
		b.WriteString("- ")
		b.WriteString(string(dt))
		b.WriteString("\n")
	}
	b.WriteString("\nReturn JSON of the form:\n")
	b.WriteString(`{"document_type": "<type>", "confidence": <0..1>, "alternatives": [{"document_type": "<type>", "confidence": <0..1>}], "reasoning": "<short explanation>"}` + "\n")
	b.WriteString("List at most ")
	b.WriteString(fmt.Sprintf("%d", maxAlternatives))
	b.WriteString(" alternatives, best first. Use \"unknown\" only when the text gives no usable signal.\n\nDocument text:\n")
	b.WriteString(text)
	return b.String()
}

type classificationResponse struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Alternatives []struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
	} `json:"alternatives"`
	Reasoning string `json:"reasoning"`
}

// parseClassification is strict about structure but lenient about
// labels: anything outside the enum becomes "other" with a note.
func parseClassification(raw string) (domain.ClassificationResult, error) {
	var resp classificationResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &resp); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("parse classification json: %w", err)
	}
	if strings.TrimSpace(resp.DocumentType) == "" {
		return domain.ClassificationResult{}, fmt.Errorf("classification response has no document_type")
	}

	reasoning := strings.TrimSpace(resp.Reasoning)
	coerce := func(label string) domain.DocumentType {
		dt, ok := domain.ParseDocumentType(label)
		if !ok {
			note := fmt.Sprintf("label %q is outside the known set; coerced to other", label)
			if reasoning == "" {
				reasoning = note
			} else {
				reasoning += "; " + note
			}
			return domain.TypeOther
		}
		return dt
	}

	type candidate struct {
		dt   domain.DocumentType
		conf float64
	}
	candidates := []candidate{{dt: coerce(resp.DocumentType), conf: domain.ClampConfidence(resp.Confidence)}}
	for _, alt := range resp.Alternatives {
		candidates = append(candidates, candidate{
			dt:   coerce(alt.DocumentType),
			conf: domain.ClampConfidence(alt.Confidence),
		})
	}

	// Dedupe by type, keeping the highest score for each.
	best := make(map[domain.DocumentType]float64, len(candidates))
	for _, c := range candidates {
		if cur, ok := best[c.dt]; !ok || c.conf > cur {
			best[c.dt] = c.conf
		}
	}
	ranked := make([]candidate, 0, len(best))
	for dt, conf := range best {
		ranked = append(ranked, candidate{dt: dt, conf: conf})
	}
	// Descending confidence; equal scores resolve in canonical enum
	// order, so ties pick the earlier-declared type as primary.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].conf != ranked[j].conf {
			return ranked[i].conf > ranked[j].conf
		}
		return domain.CanonicalRank(ranked[i].dt) < domain.CanonicalRank(ranked[j].dt)
	})

	result := domain.ClassificationResult{
		DocumentType: ranked[0].dt,
		Confidence:   ranked[0].conf,
		Reasoning:    reasoning,
	}
	for _, c := range ranked[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, domain.TypeConfidence{
			DocumentType: c.dt,
			Confidence:   c.conf,
		})
	}
	return result, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
