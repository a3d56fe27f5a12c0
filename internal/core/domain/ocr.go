package domain

// OCRBlock is one recognized region of a document page.
type OCRBlock struct {
	Type       string          `json:"type"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Page       int             `json:"page,omitempty"`
	Location   *SourceLocation `json:"location,omitempty"`
}

// OCRResult is the plain-text view of a document. Confidence is the
// provider's aggregate in [0,1]; callers tolerate small variation
// between repeated calls on the same key.
type OCRResult struct {
	Text       string     `json:"text"`
	Blocks     []OCRBlock `json:"blocks,omitempty"`
	Confidence float64    `json:"confidence"`
}

// FormField is one key/value pair recovered from document layout.
type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Table is a recovered grid of cell texts, row-major.
type Table struct {
	Rows [][]string `json:"rows"`
}

// DocumentAnalysis is the structured-layout superset of OCRResult, used
// when extraction needs forms or tables.
type DocumentAnalysis struct {
	Text   string      `json:"text"`
	Forms  []FormField `json:"forms,omitempty"`
	Tables []Table     `json:"tables,omitempty"`
}
