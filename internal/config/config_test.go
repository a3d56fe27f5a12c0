package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("COMPLETION_MAX_TOKENS", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("DOCINTEL_CONFIG", "")

	cfg := Load()
	if cfg.OCRProvider != "textract" {
		t.Fatalf("expected default ocr provider textract, got %q", cfg.OCRProvider)
	}
	if cfg.NATSSubject != "jobs.submitted" {
		t.Fatalf("expected default subject jobs.submitted, got %q", cfg.NATSSubject)
	}
	if cfg.CompletionMaxTokens != 2048 {
		t.Fatalf("expected default max tokens 2048, got %d", cfg.CompletionMaxTokens)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rate limit 50, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "pdftext")
	t.Setenv("COMPLETION_TEMPERATURE", "0.3")
	t.Setenv("WORKER_JOB_TIMEOUT_SECONDS", "120")
	t.Setenv("DOCINTEL_CONFIG", "")

	cfg := Load()
	if cfg.OCRProvider != "pdftext" {
		t.Fatalf("expected ocr provider override, got %q", cfg.OCRProvider)
	}
	if cfg.CompletionTemperature != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", cfg.CompletionTemperature)
	}
	if cfg.WorkerJobTimeoutSecs != 120 {
		t.Fatalf("expected job timeout 120, got %d", cfg.WorkerJobTimeoutSecs)
	}
}

func TestYAMLOverlayOverridesFieldByField(t *testing.T) {
	t.Setenv("OCR_PROVIDER", "textract")
	t.Setenv("API_PORT", "8080")

	path := filepath.Join(t.TempDir(), "docintel.yaml")
	overlayYAML := "ocr_provider: pdftext\napi_rate_limit_rps: 7\n"
	if err := os.WriteFile(path, []byte(overlayYAML), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("DOCINTEL_CONFIG", path)

	cfg := Load()
	if cfg.OCRProvider != "pdftext" {
		t.Fatalf("overlay should override ocr provider, got %q", cfg.OCRProvider)
	}
	if cfg.APIRateLimitRPS != 7 {
		t.Fatalf("overlay should override rate limit, got %d", cfg.APIRateLimitRPS)
	}
	// Keys absent from the overlay keep their environment value.
	if cfg.APIPort != "8080" {
		t.Fatalf("absent overlay key must not reset api port, got %q", cfg.APIPort)
	}
}
