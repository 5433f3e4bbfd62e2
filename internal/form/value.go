package form

import (
	"fmt"
	"path/filepath"
)

// FieldValue is one submittable value. While a file is attached the value
// holds the attachment's filename and cannot be changed.
type FieldValue struct {
	value      string
	selected   bool
	binaryPath string
}

func NewFieldValue(value string, selected bool) *FieldValue {
	return &FieldValue{value: value, selected: selected}
}

func (v *FieldValue) Value() string      { return v.value }
func (v *FieldValue) Selected() bool     { return v.selected }
func (v *FieldValue) BinaryPath() string { return v.binaryPath }

func (v *FieldValue) HasAttachment() bool { return v.binaryPath != "" }

func (v *FieldValue) SetSelected(selected bool) {
	v.selected = selected
}

func (v *FieldValue) SetValue(value string) error {
	if v.HasAttachment() {
		return fmt.Errorf("set value %q: %w", value, ErrAttachmentLocked)
	}
	v.value = value
	return nil
}

// AttachFile points the value at a local file. The file is not read here.
func (v *FieldValue) AttachFile(path string) error {
	if path == "" {
		return fmt.Errorf("attach file: empty path: %w", ErrInvalidArgument)
	}
	v.binaryPath = path
	v.value = filepath.Base(path)
	return nil
}

func (v *FieldValue) DetachFile() {
	v.binaryPath = ""
	v.value = ""
}

// Filename is the name a multipart body would carry for the attachment.
func (v *FieldValue) Filename() string {
	if !v.HasAttachment() {
		return ""
	}
	if v.value != "" {
		return v.value
	}
	return filepath.Base(v.binaryPath)
}

func (v *FieldValue) Equal(other *FieldValue) bool {
	if v == nil || other == nil {
		return v == other
	}
	return *v == *other
}

func (v *FieldValue) clone() *FieldValue {
	c := *v
	return &c
}
