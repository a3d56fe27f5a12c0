package domain

// TypeConfidence is one ranked alternative from classification.
type TypeConfidence struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   float64      `json:"confidence"`
}

// ClassificationResult is an immutable value produced once per job.
// Alternatives are ordered by descending confidence and never include
// the primary type.
type ClassificationResult struct {
	DocumentType DocumentType     `json:"document_type"`
	Confidence   float64          `json:"confidence"`
	Alternatives []TypeConfidence `json:"alternatives,omitempty"`
	Reasoning    string           `json:"reasoning,omitempty"`
}

// ClampConfidence forces a score into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
