package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/submission"
)

func runLocal(opts options, markup string, fsys afero.Fs, w io.Writer) error {
	if opts.All {
		if hasEdits(opts) {
			return errors.New("--attach, --select and --control need a single form")
		}
		forms, err := extract.ParseForms(markup)
		if err != nil {
			return err
		}
		return writeForms(w, opts.Format, forms, true)
	}

	sel, err := opts.selector()
	if err != nil {
		return err
	}
	f, err := extract.ParseForm(markup, sel)
	if err != nil {
		return err
	}
	if err := applyEdits(f, opts); err != nil {
		return err
	}
	if opts.Format == formatRequest {
		req, err := submission.Prepare(f, submission.Options{BaseURL: opts.Base, Fs: fsys, Boundary: opts.Boundary})
		if err != nil {
			return err
		}
		return writeRequest(w, req.Method, req.URL, req.ContentType, string(req.Body))
	}
	return writeForms(w, opts.Format, []*form.Form{f}, false)
}

func hasEdits(opts options) bool {
	return len(opts.Attach) > 0 || len(opts.Select) > 0 || opts.Control != ""
}

func applyEdits(f *form.Form, opts options) error {
	for _, s := range opts.Select {
		name, value, ok := splitAssignment(s)
		if !ok || name == "" {
			return fmt.Errorf("--select %q: expected name=value", s)
		}
		if err := f.Fields.SetSelected(name, value, true); err != nil {
			return err
		}
	}
	for _, a := range opts.Attach {
		name, path, ok := splitAssignment(a)
		if !ok || name == "" || path == "" {
			return fmt.Errorf("--attach %q: expected name=path", a)
		}
		if err := f.AttachFile(name, path); err != nil {
			return err
		}
	}
	if opts.Control != "" {
		name, value, _ := splitAssignment(opts.Control)
		if err := f.SelectControl(name, value); err != nil {
			return err
		}
	}
	return nil
}

func writeForms(w io.Writer, format string, forms []*form.Form, list bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if list {
			return enc.Encode(records(forms))
		}
		return enc.Encode(forms[0])
	case formatYAML:
		if list {
			return form.EncodeYAML(w, records(forms))
		}
		return form.EncodeYAML(w, forms[0])
	case formatPairs:
		for i, f := range forms {
			if list && i > 0 {
				fmt.Fprintln(w)
			}
			if err := writePairs(w, f.SubmissionPairs()); err != nil {
				return err
			}
		}
		return nil
	case formatAttachments:
		for _, f := range forms {
			if err := writeAttachments(w, f.FileAttachments()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func records(forms []*form.Form) []form.Record {
	out := make([]form.Record, 0, len(forms))
	for _, f := range forms {
		out = append(out, f.Record())
	}
	return out
}

func writePairs(w io.Writer, pairs []form.Pair) error {
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%s=%s\n", p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeAttachments(w io.Writer, attachments []form.Attachment) error {
	for _, a := range attachments {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, a.Filename, a.Path); err != nil {
			return err
		}
	}
	return nil
}

func writeRequest(w io.Writer, method, url, contentType, body string) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", method, url); err != nil {
		return err
	}
	if contentType != "" {
		if _, err := fmt.Fprintf(w, "Content-Type: %s\n", contentType); err != nil {
			return err
		}
	}
	if body != "" {
		if _, err := fmt.Fprintf(w, "\n%s\n", body); err != nil {
			return err
		}
	}
	return nil
}
