package protocol

import (
	"encoding/json"
	"errors"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
)

type CommandType string

const (
	CommandParse      CommandType = "parse"
	CommandParseAll   CommandType = "parse_all"
	CommandGet        CommandType = "get"
	CommandList       CommandType = "list"
	CommandSelect     CommandType = "select"
	CommandSubmission CommandType = "submission"
)

const (
	CodeBadCommand         = "bad_command"
	CodeNotFound           = "not_found"
	CodeInvalidArgument    = "invalid_argument"
	CodeInvalidElement     = "invalid_element"
	CodeUnsupportedControl = "unsupported_control_type"
	CodeAttachmentLocked   = "attachment_locked"
	CodeInternal           = "internal"
)

type Command struct {
	ID      string          `json:"id"`
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	ID        string          `json:"id"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type ParsePayload struct {
	Markup   string               `json:"markup"`
	Source   string               `json:"source,omitempty"`
	Selector extract.SelectorSpec `json:"selector,omitempty"`
}

type FormPayload struct {
	FormID string `json:"formId"`
}

type SelectPayload struct {
	FormID     string `json:"formId"`
	Collection string `json:"collection,omitempty"`
	Name       string `json:"name"`
	Value      string `json:"value,omitempty"`
	Selected   bool   `json:"selected"`
}

// CodeFor classifies err for the errorCode field.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, form.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, form.ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, form.ErrInvalidElement):
		return CodeInvalidElement
	case errors.Is(err, form.ErrUnsupportedControlType):
		return CodeUnsupportedControl
	case errors.Is(err, form.ErrAttachmentLocked):
		return CodeAttachmentLocked
	default:
		return CodeInternal
	}
}

// Success wraps data into an OK response for id.
func Success(id string, data any) (Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: id, OK: true, Data: raw}, nil
}

func Failure(id string, err error) Response {
	return Response{ID: id, Error: err.Error(), ErrorCode: CodeFor(err)}
}
