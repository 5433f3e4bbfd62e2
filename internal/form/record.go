package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Record is the plain serializable shape of a Form.
type Record struct {
	Name          *string       `json:"name" yaml:"name"`
	ID            *string       `json:"id" yaml:"id"`
	Action        *string       `json:"action" yaml:"action"`
	Method        string        `json:"method" yaml:"method"`
	Enctype       string        `json:"enctype" yaml:"enctype"`
	AcceptCharset string        `json:"accept-charset" yaml:"accept-charset"`
	Fields        []FieldRecord `json:"fields" yaml:"fields"`
	Controls      []FieldRecord `json:"controls" yaml:"controls"`
}

type FieldRecord struct {
	Name   *string       `json:"name" yaml:"name"`
	Type   string        `json:"type" yaml:"type"`
	Values []ValueRecord `json:"values" yaml:"values"`
}

type ValueRecord struct {
	Value      *string `json:"value" yaml:"value"`
	IsSelected *bool   `json:"is_selected" yaml:"is_selected"`
	BinaryPath *string `json:"binary_path" yaml:"binary_path"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *Form) Record() Record {
	return Record{
		Name:          optional(f.Name),
		ID:            optional(f.ID),
		Action:        optional(f.Action),
		Method:        f.Method,
		Enctype:       f.Enctype,
		AcceptCharset: f.AcceptCharset,
		Fields:        collectionRecords(f.Fields),
		Controls:      collectionRecords(f.Controls),
	}
}

func collectionRecords(c *FieldCollection) []FieldRecord {
	out := make([]FieldRecord, 0, c.Len())
	for _, field := range c.All() {
		name := field.name
		rec := FieldRecord{Name: &name, Type: field.typ, Values: make([]ValueRecord, 0, len(field.values))}
		for _, v := range field.values {
			value, selected := v.value, v.selected
			rec.Values = append(rec.Values, ValueRecord{
				Value:      &value,
				IsSelected: &selected,
				BinaryPath: optional(v.binaryPath),
			})
		}
		out = append(out, rec)
	}
	return out
}

// FromRecord rebuilds a Form. A field without a name or a value without
// is_selected is rejected with ErrInvalidArgument.
func FromRecord(rec Record) (*Form, error) {
	f := &Form{
		Name:          deref(rec.Name),
		ID:            deref(rec.ID),
		Action:        deref(rec.Action),
		Method:        rec.Method,
		Enctype:       rec.Enctype,
		AcceptCharset: rec.AcceptCharset,
	}
	f.Normalize()
	if err := fillCollection(f.Fields, "fields", rec.Fields); err != nil {
		return nil, err
	}
	if err := fillCollection(f.Controls, "controls", rec.Controls); err != nil {
		return nil, err
	}
	return f, nil
}

func fillCollection(c *FieldCollection, section string, records []FieldRecord) error {
	for i, fr := range records {
		if fr.Name == nil {
			return fmt.Errorf("%s[%d]: name is required: %w", section, i, ErrInvalidArgument)
		}
		field := NewField(*fr.Name, fr.Type)
		for j, vr := range fr.Values {
			if vr.IsSelected == nil {
				return fmt.Errorf("%s[%d].values[%d]: is_selected is required: %w", section, i, j, ErrInvalidArgument)
			}
			field.AddValues(&FieldValue{
				value:      deref(vr.Value),
				selected:   *vr.IsSelected,
				binaryPath: deref(vr.BinaryPath),
			})
		}
		c.Append(field)
	}
	return nil
}

func (f *Form) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Record())
}

func (f *Form) UnmarshalJSON(data []byte) error {
	rec, err := DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	parsed, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*f = *parsed
	return nil
}

func (f *Form) MarshalYAML() (any, error) {
	return f.Record(), nil
}

// DecodeJSON reads a Record. Values of the wrong JSON type are reported as
// ErrInvalidArgument.
func DecodeJSON(r io.Reader) (Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Record{}, fmt.Errorf("decode record: %s: %w", typeErr.Field, ErrInvalidArgument)
		}
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func DecodeYAML(r io.Reader) (Record, error) {
	var rec Record
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return Record{}, fmt.Errorf("decode record: %v: %w", typeErr.Errors, ErrInvalidArgument)
		}
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
