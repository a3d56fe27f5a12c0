// Package pdftext is a local TextRecognizer for digital (text-born)
// PDFs. It reads bytes from object storage and pulls the embedded text
// layer directly, so deployments without a cloud OCR account can still
// process machine-generated documents.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
	log     *slog.Logger
}

func New(storage ports.ObjectStorage, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{storage: storage, log: log}
}

func (e *Extractor) ExtractText(ctx context.Context, storageKey string) (domain.OCRResult, error) {
	text, err := e.readText(ctx, storageKey)
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCR, "extract text from "+storageKey, err)
	}
	// Digital text carries no recognition uncertainty.
	return domain.OCRResult{Text: text, Confidence: 1.0}, nil
}

// AnalyzeDocument degrades to plain text: the embedded text layer has
// no form or table geometry to recover.
func (e *Extractor) AnalyzeDocument(ctx context.Context, storageKey string) (domain.DocumentAnalysis, error) {
	text, err := e.readText(ctx, storageKey)
	if err != nil {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrOCR, "analyze document "+storageKey, err)
	}
	return domain.DocumentAnalysis{Text: text}, nil
}

func (e *Extractor) readText(ctx context.Context, storageKey string) (string, error) {
	obj, err := e.storage.Open(ctx, storageKey)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read stored document: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(b.String())
	e.log.Info("pdf text extraction done", "storage_key", storageKey, "text_len", len(text))
	return text, nil
}
