package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldFloat  FieldKind = "float"
	FieldBool   FieldKind = "bool"
	FieldDate   FieldKind = "date"
	FieldAbsent FieldKind = "absent"
)

const DateLayout = "2006-01-02"

// FieldValue is a tagged union over the value kinds an extracted field
// may carry. The zero value is absent.
type FieldValue struct {
	kind FieldKind
	str  string
	num  int64
	fnum float64
	flag bool
	date time.Time
}

func StringValue(s string) FieldValue  { return FieldValue{kind: FieldString, str: s} }
func IntValue(n int64) FieldValue      { return FieldValue{kind: FieldInt, num: n} }
func FloatValue(f float64) FieldValue  { return FieldValue{kind: FieldFloat, fnum: f} }
func BoolValue(b bool) FieldValue      { return FieldValue{kind: FieldBool, flag: b} }
func DateValue(t time.Time) FieldValue { return FieldValue{kind: FieldDate, date: t} }
func AbsentValue() FieldValue          { return FieldValue{kind: FieldAbsent} }

func (v FieldValue) Kind() FieldKind {
	if v.kind == "" {
		return FieldAbsent
	}
	return v.kind
}

func (v FieldValue) IsAbsent() bool { return v.Kind() == FieldAbsent }

func (v FieldValue) String() string  { return v.str }
func (v FieldValue) Int() int64      { return v.num }
func (v FieldValue) Float() float64  { return v.fnum }
func (v FieldValue) Bool() bool      { return v.flag }
func (v FieldValue) Date() time.Time { return v.date }

type fieldValueJSON struct {
	Kind  FieldKind       `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	out := fieldValueJSON{Kind: v.Kind()}
	var payload any
	switch v.Kind() {
	case FieldString:
		payload = v.str
	case FieldInt:
		payload = v.num
	case FieldFloat:
		payload = v.fnum
	case FieldBool:
		payload = v.flag
	case FieldDate:
		payload = v.date.Format(DateLayout)
	case FieldAbsent:
		return json.Marshal(out)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	out.Value = raw
	return json.Marshal(out)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var in fieldValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case FieldString:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case FieldInt:
		var n int64
		if err := json.Unmarshal(in.Value, &n); err != nil {
			return err
		}
		*v = IntValue(n)
	case FieldFloat:
		var f float64
		if err := json.Unmarshal(in.Value, &f); err != nil {
			return err
		}
		*v = FloatValue(f)
	case FieldBool:
		var b bool
		if err := json.Unmarshal(in.Value, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case FieldDate:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return fmt.Errorf("parse date field: %w", err)
		}
		*v = DateValue(t)
	case FieldAbsent, "":
		*v = AbsentValue()
	default:
		return fmt.Errorf("unknown field kind %q", in.Kind)
	}
	return nil
}

// SourceLocation points back into the OCR output that produced a value.
type SourceLocation struct {
	Page   int     `json:"page,omitempty"`
	Left   float64 `json:"left,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type ExtractedField struct {
	Name           string          `json:"name"`
	Value          FieldValue      `json:"value"`
	Confidence     float64         `json:"confidence"`
	SourceLocation *SourceLocation `json:"source_location,omitempty"`
}

// ExtractionResult is an immutable value produced once per job. Field
// names are unique and follow schema order. OverallConfidence is the
// minimum over scored fields: one weak critical field depresses overall
// trust, which is the conservative choice for a compliance domain.
type ExtractionResult struct {
	DocumentID        string           `json:"document_id"`
	DocumentType      DocumentType     `json:"document_type"`
	Fields            []ExtractedField `json:"fields"`
	OverallConfidence float64          `json:"overall_confidence"`
	RawText           string           `json:"raw_text,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
	ProcessingTimeMS  int64            `json:"processing_time_ms"`
}
