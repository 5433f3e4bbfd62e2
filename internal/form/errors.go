package form

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidElement         = errors.New("invalid form element")
	ErrUnsupportedControlType = errors.New("unsupported control type")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrAttachmentLocked       = errors.New("value is locked by a file attachment")
)
