package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
)

func TestCommandRoundTrip(t *testing.T) {
	payload, err := json.Marshal(ParsePayload{Markup: "<form></form>", Selector: extract.SelectorSpec{ID: "f"}})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	cmd := Command{ID: "1", Type: CommandParse, Payload: payload}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	var got Command
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	if !reflect.DeepEqual(cmd, got) {
		t.Fatalf("round trip mismatch: %#v != %#v", cmd, got)
	}
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("form: %w", form.ErrNotFound), CodeNotFound},
		{fmt.Errorf("x: %w", form.ErrInvalidArgument), CodeInvalidArgument},
		{form.ErrInvalidElement, CodeInvalidElement},
		{form.ErrUnsupportedControlType, CodeUnsupportedControl},
		{form.ErrAttachmentLocked, CodeAttachmentLocked},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.err); got != tc.want {
			t.Fatalf("CodeFor(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSuccessAndFailure(t *testing.T) {
	resp, err := Success("7", map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("success: %v", err)
	}
	if !resp.OK || string(resp.Data) != `{"n":1}` {
		t.Fatalf("unexpected response %+v", resp)
	}
	fail := Failure("8", fmt.Errorf("stored form: %w", form.ErrNotFound))
	if fail.OK || fail.ErrorCode != CodeNotFound || fail.ID != "8" {
		t.Fatalf("unexpected failure %+v", fail)
	}
}
