package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

// heuristicConfidence scores a field that parsed cleanly but came back
// without a provider-reported confidence.
const heuristicConfidence = 0.7

var acceptedDateLayouts = []string{
	domain.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Extractor produces a type-specific structured record from OCR text
// via the completion router. Partial field failures degrade confidence
// and add warnings; only a total provider failure is an error.
type Extractor struct {
	router    ports.CompletionRouter
	ocr       ports.TextRecognizer
	opts      CompletionOptions
	log       *slog.Logger
	validator *schemaValidator
}

func NewExtractor(router ports.CompletionRouter, ocr ports.TextRecognizer, opts CompletionOptions, log *slog.Logger) (*Extractor, error) {
	if log == nil {
		log = slog.Default()
	}
	validator, err := newSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("compile extraction schemas: %w", err)
	}
	return &Extractor{router: router, ocr: ocr, opts: opts, log: log, validator: validator}, nil
}

// ExtractStored runs OCR (layout analysis for types that need it) and
// extracts the schema fields. The unknown-type precondition is checked
// before any provider call is made.
func (e *Extractor) ExtractStored(ctx context.Context, documentID, storageKey string, dt domain.DocumentType) (domain.ExtractionResult, error) {
	if err := checkExtractableType(dt); err != nil {
		return domain.ExtractionResult{}, err
	}

	var text string
	var analysis *domain.DocumentAnalysis
	if domain.NeedsLayout(dt) {
		a, err := e.ocr.AnalyzeDocument(ctx, storageKey)
		if err != nil {
			return domain.ExtractionResult{}, err
		}
		text = a.Text
		analysis = &a
	} else {
		r, err := e.ocr.ExtractText(ctx, storageKey)
		if err != nil {
			return domain.ExtractionResult{}, err
		}
		text = r.Text
	}
	return e.Extract(ctx, documentID, text, dt, analysis)
}

// Extract builds a schema-constrained prompt for the document type and
// parses the response field by field. analysis may be nil.
func (e *Extractor) Extract(ctx context.Context, documentID, ocrText string, dt domain.DocumentType, analysis *domain.DocumentAnalysis) (domain.ExtractionResult, error) {
	if err := checkExtractableType(dt); err != nil {
		return domain.ExtractionResult{}, err
	}
	specs, _ := domain.SchemaFor(dt)

	start := time.Now()
	e.log.Info("extracting document fields",
		"document_id", documentID,
		"document_type", dt,
		"field_count", len(specs),
	)

	raw, err := e.router.Complete(ctx, ports.CompletionRequest{
		Prompt:        buildExtractionPrompt(ocrText, dt, specs, analysis),
		SystemPrompt:  extractionSystemPrompt,
		MaxTokens:     e.opts.MaxTokens,
		Temperature:   e.opts.Temperature,
		AllowFallback: true,
	})
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtraction, "extract document fields", err)
	}

	result := e.parseExtraction(raw, dt, specs)
	result.DocumentID = documentID
	result.RawText = ocrText
	result.ProcessingTimeMS = time.Since(start).Milliseconds()

	e.log.Info("document fields extracted",
		"document_id", documentID,
		"document_type", dt,
		"overall_confidence", result.OverallConfidence,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func checkExtractableType(dt domain.DocumentType) error {
	if dt == domain.TypeUnknown {
		return domain.WrapError(domain.ErrInvalidDocumentType, "extract", fmt.Errorf("extraction is not defined for type %q", dt))
	}
	if _, ok := domain.SchemaFor(dt); !ok {
		return domain.WrapError(domain.ErrInvalidDocumentType, "extract", fmt.Errorf("type %q is outside the document type enum", dt))
	}
	return nil
}

const extractionSystemPrompt = "You are a data extraction assistant for combat sports compliance documents. " +
	"Respond with a single JSON object and nothing else."

func buildExtractionPrompt(text string, dt domain.DocumentType, specs []domain.FieldSpec, analysis *domain.DocumentAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the following fields from this %s document.\n\nFields:\n", dt)
	for _, spec := range specs {
		fmt.Fprintf(&b, "- %s (%s)\n", spec.Name, spec.Kind)
	}
	b.WriteString("\nReturn JSON of the form:\n")
	b.WriteString(`{"fields": {"<name>": {"value": <value or null>, "confidence": <0..1>}}}` + "\n")
	b.WriteString("Dates must be ISO-8601 (YYYY-MM-DD). Use null for any value not present in the document; never invent values.\n")

	if analysis != nil && (len(analysis.Forms) > 0 || len(analysis.Tables) > 0) {
		b.WriteString("\nRecovered form fields:\n")
		for _, f := range analysis.Forms {
			fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
		}
		for i, t := range analysis.Tables {
			fmt.Fprintf(&b, "\nTable %d:\n", i+1)
			for _, row := range t.Rows {
				b.WriteString(strings.Join(row, " | "))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\nDocument text:\n")
	b.WriteString(text)
	return b.String()
}

type extractionResponse struct {
	Fields map[string]fieldResponse `json:"fields"`
}

type fieldResponse struct {
	Value      json.RawMessage `json:"value"`
	Confidence *float64        `json:"confidence"`
	Source     *struct {
		Page   int     `json:"page"`
		Left   float64 `json:"left"`
		Top    float64 `json:"top"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"source"`
}

// parseExtraction never fails: malformed output degrades into absent
// fields, zero confidences and warnings.
func (e *Extractor) parseExtraction(raw string, dt domain.DocumentType, specs []domain.FieldSpec) domain.ExtractionResult {
	result := domain.ExtractionResult{DocumentType: dt}
	content := []byte(extractJSONObject(raw))

	if err := e.validator.validate(dt, content); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("model output failed schema validation, parsing leniently: %v", err))
	}

	var resp extractionResponse
	if err := json.Unmarshal(content, &resp); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("model output is not valid JSON: %v", err))
		resp.Fields = nil
	}

	minConf := -1.0
	for _, spec := range specs {
		field, scored, warning := parseField(spec, resp.Fields[spec.Name])
		result.Fields = append(result.Fields, field)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if scored && (minConf < 0 || field.Confidence < minConf) {
			minConf = field.Confidence
		}
	}
	if minConf >= 0 {
		result.OverallConfidence = minConf
	}
	return result
}

// parseField converts one raw field. scored reports whether the field
// participates in the overall-confidence minimum: absent-from-document
// fields are excluded (warned only), while present-but-unparseable
// values score zero so they depress overall trust.
func parseField(spec domain.FieldSpec, raw fieldResponse) (domain.ExtractedField, bool, string) {
	field := domain.ExtractedField{Name: spec.Name, Value: domain.AbsentValue()}

	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return field, false, fmt.Sprintf("field %s absent from document", spec.Name)
	}

	value, err := decodeFieldValue(spec.Kind, raw.Value)
	if err != nil {
		field.Confidence = 0
		return field, true, fmt.Sprintf("field %s: %v", spec.Name, err)
	}
	if value.IsAbsent() {
		return field, false, fmt.Sprintf("field %s absent from document", spec.Name)
	}

	field.Value = value
	if raw.Confidence != nil {
		field.Confidence = domain.ClampConfidence(*raw.Confidence)
	} else {
		field.Confidence = heuristicConfidence
	}
	if raw.Source != nil {
		field.SourceLocation = &domain.SourceLocation{
			Page:   raw.Source.Page,
			Left:   raw.Source.Left,
			Top:    raw.Source.Top,
			Width:  raw.Source.Width,
			Height: raw.Source.Height,
		}
	}
	return field, true, ""
}

func decodeFieldValue(kind domain.FieldKind, raw json.RawMessage) (domain.FieldValue, error) {
	switch kind {
	case domain.FieldString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.AbsentValue(), fmt.Errorf("expected string, got %s", compact(raw))
		}
		if strings.TrimSpace(s) == "" {
			return domain.AbsentValue(), nil
		}
		return domain.StringValue(s), nil

	case domain.FieldInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			return domain.IntValue(n), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return domain.IntValue(n), nil
			}
		}
		return domain.AbsentValue(), fmt.Errorf("value %s is not an integer", compact(raw))

	case domain.FieldFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return domain.FloatValue(f), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return domain.FloatValue(f), nil
			}
		}
		return domain.AbsentValue(), fmt.Errorf("value %s is not a number", compact(raw))

	case domain.FieldBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return domain.BoolValue(b), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes", "y":
				return domain.BoolValue(true), nil
			case "false", "no", "n":
				return domain.BoolValue(false), nil
			}
		}
		return domain.AbsentValue(), fmt.Errorf("value %s is not a boolean", compact(raw))

	case domain.FieldDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.AbsentValue(), fmt.Errorf("expected date string, got %s", compact(raw))
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return domain.AbsentValue(), nil
		}
		for _, layout := range acceptedDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.DateValue(t), nil
			}
		}
		return domain.AbsentValue(), fmt.Errorf("value %q is not a valid calendar date", s)

	default:
		return domain.AbsentValue(), fmt.Errorf("unsupported field kind %q", kind)
	}
}

func compact(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 48 {
		s = s[:48] + "..."
	}
	return s
}
