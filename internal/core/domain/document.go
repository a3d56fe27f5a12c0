package domain

import (
	"strings"
	"time"
)

// DocumentType is the closed set of compliance document categories.
type DocumentType string

const (
	TypeMedicalClearance DocumentType = "medical_clearance"
	TypePhotoID          DocumentType = "photo_id"
	TypeWeighInRecord    DocumentType = "weigh_in_record"
	TypeContract         DocumentType = "contract"
	TypeInsuranceCert    DocumentType = "insurance_certificate"
	TypeLicense          DocumentType = "license"
	TypeOther            DocumentType = "other"
	TypeUnknown          DocumentType = "unknown"
)

// CanonicalDocumentTypes lists every type in declaration order. The order
// is load-bearing: equal-confidence classification ties resolve to the
// earlier entry.
var CanonicalDocumentTypes = []DocumentType{
	TypeMedicalClearance,
	TypePhotoID,
	TypeWeighInRecord,
	TypeContract,
	TypeInsuranceCert,
	TypeLicense,
	TypeOther,
	TypeUnknown,
}

// CanonicalRank returns the position of dt in canonical order, or
// len(CanonicalDocumentTypes) for values outside the enum.
func CanonicalRank(dt DocumentType) int {
	for i, t := range CanonicalDocumentTypes {
		if t == dt {
			return i
		}
	}
	return len(CanonicalDocumentTypes)
}

// ParseDocumentType normalizes a free-form label into the closed enum.
// The second return is false when the label matches nothing.
func ParseDocumentType(s string) (DocumentType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "medical_clearance", "medical", "medical_clearance_form":
		return TypeMedicalClearance, true
	case "photo_id", "id", "identification", "photo_identification":
		return TypePhotoID, true
	case "weigh_in_record", "weigh_in", "weighin", "weighin_record":
		return TypeWeighInRecord, true
	case "contract", "bout_agreement", "bout_contract":
		return TypeContract, true
	case "insurance_certificate", "insurance", "insurance_cert":
		return TypeInsuranceCert, true
	case "license", "licence", "fighter_license":
		return TypeLicense, true
	case "other":
		return TypeOther, true
	case "unknown":
		return TypeUnknown, true
	default:
		return TypeUnknown, false
	}
}

// Document is a registered unit of work. Immutable once created.
type Document struct {
	ID         string            `json:"id"`
	StorageKey string            `json:"storage_key"`
	UploadedBy string            `json:"uploaded_by,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
