package domain

// FieldSpec declares one field of a type-specific extraction schema.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

var medicalClearanceSchema = []FieldSpec{
	{Name: "fighter_name", Kind: FieldString},
	{Name: "date_of_birth", Kind: FieldDate},
	{Name: "clearance_date", Kind: FieldDate},
	{Name: "expiration_date", Kind: FieldDate},
	{Name: "physician_name", Kind: FieldString},
	{Name: "physician_license", Kind: FieldString},
	{Name: "cleared_for_competition", Kind: FieldBool},
	{Name: "restrictions", Kind: FieldString},
	{Name: "notes", Kind: FieldString},
}

var photoIDSchema = []FieldSpec{
	{Name: "full_name", Kind: FieldString},
	{Name: "date_of_birth", Kind: FieldDate},
	{Name: "id_number", Kind: FieldString},
	{Name: "issue_date", Kind: FieldDate},
	{Name: "expiration_date", Kind: FieldDate},
	{Name: "address", Kind: FieldString},
	{Name: "id_type", Kind: FieldString},
	{Name: "issuing_authority", Kind: FieldString},
}

var weighInSchema = []FieldSpec{
	{Name: "fighter_name", Kind: FieldString},
	{Name: "weight", Kind: FieldFloat},
	{Name: "weight_class", Kind: FieldString},
	{Name: "weigh_in_date", Kind: FieldDate},
	{Name: "weigh_in_time", Kind: FieldString},
	{Name: "official_name", Kind: FieldString},
	{Name: "made_weight", Kind: FieldBool},
}

var contractSchema = []FieldSpec{
	{Name: "fighter_name", Kind: FieldString},
	{Name: "opponent_name", Kind: FieldString},
	{Name: "promoter", Kind: FieldString},
	{Name: "event_date", Kind: FieldDate},
	{Name: "purse_amount", Kind: FieldFloat},
	{Name: "scheduled_rounds", Kind: FieldInt},
	{Name: "weight_class", Kind: FieldString},
	{Name: "signed_date", Kind: FieldDate},
}

var insuranceCertSchema = []FieldSpec{
	{Name: "insured_name", Kind: FieldString},
	{Name: "policy_number", Kind: FieldString},
	{Name: "carrier", Kind: FieldString},
	{Name: "coverage_amount", Kind: FieldFloat},
	{Name: "effective_date", Kind: FieldDate},
	{Name: "expiration_date", Kind: FieldDate},
}

var licenseSchema = []FieldSpec{
	{Name: "licensee_name", Kind: FieldString},
	{Name: "license_number", Kind: FieldString},
	{Name: "license_type", Kind: FieldString},
	{Name: "issuing_commission", Kind: FieldString},
	{Name: "issue_date", Kind: FieldDate},
	{Name: "expiration_date", Kind: FieldDate},
}

var genericSchema = []FieldSpec{
	{Name: "title", Kind: FieldString},
	{Name: "subject_name", Kind: FieldString},
	{Name: "document_date", Kind: FieldDate},
	{Name: "summary", Kind: FieldString},
}

// SchemaFor returns the extraction schema for a document type. The table
// is closed: unknown has no schema, and extraction must never be asked
// for it.
func SchemaFor(dt DocumentType) ([]FieldSpec, bool) {
	switch dt {
	case TypeMedicalClearance:
		return medicalClearanceSchema, true
	case TypePhotoID:
		return photoIDSchema, true
	case TypeWeighInRecord:
		return weighInSchema, true
	case TypeContract:
		return contractSchema, true
	case TypeInsuranceCert:
		return insuranceCertSchema, true
	case TypeLicense:
		return licenseSchema, true
	case TypeOther:
		return genericSchema, true
	default:
		return nil, false
	}
}

// NeedsLayout reports whether extraction for the type benefits from
// structured layout analysis (forms and tables) on top of plain text.
func NeedsLayout(dt DocumentType) bool {
	return dt == TypeInsuranceCert || dt == TypeContract
}
