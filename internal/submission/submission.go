// Package submission prepares the HTTP request a browser would send for a
// form. Nothing here sends it.
package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/adityalohuni/htmlform/internal/form"
)

const (
	EnctypeURLEncoded = "application/x-www-form-urlencoded"
	EnctypeMultipart  = "multipart/form-data"
	EnctypePlain      = "text/plain"
)

type Options struct {
	// BaseURL resolves relative actions.
	BaseURL string
	// Fs reads attachments. Defaults to the OS filesystem.
	Fs afero.Fs
	// Boundary fixes the multipart boundary.
	Boundary string
}

type Request struct {
	Method      string
	URL         string
	ContentType string
	Body        []byte
}

type entry struct {
	name     string
	value    string
	filename string
	path     string
}

// Prepare encodes the form's selected values the way its method and enctype
// ask for. Attachments are read from opts.Fs only for multipart bodies.
func Prepare(f *form.Form, opts Options) (*Request, error) {
	if f == nil {
		return nil, fmt.Errorf("prepare: nil form: %w", form.ErrInvalidArgument)
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	target, err := resolve(opts.BaseURL, f.Action)
	if err != nil {
		return nil, err
	}
	enc := encoderFor(f.AcceptCharset)
	entries, err := collect(f, enc)
	if err != nil {
		return nil, err
	}

	req := &Request{Method: http.MethodGet}
	if f.Method != http.MethodPost {
		target.RawQuery = urlEncode(entries)
		req.URL = target.String()
		return req, nil
	}

	req.Method = http.MethodPost
	req.URL = target.String()
	switch f.Enctype {
	case EnctypeMultipart:
		body, contentType, err := multipartBody(entries, opts)
		if err != nil {
			return nil, err
		}
		req.Body, req.ContentType = body, contentType
	case EnctypePlain:
		req.Body = []byte(plainBody(entries))
		req.ContentType = EnctypePlain
	default:
		req.Body = []byte(urlEncode(entries))
		req.ContentType = EnctypeURLEncoded
	}
	return req, nil
}

// HTTPRequest builds an unsent *http.Request.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	return req, nil
}

func resolve(base, action string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return nil, fmt.Errorf("parse action %q: %v: %w", action, err, form.ErrInvalidArgument)
	}
	if base == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %v: %w", base, err, form.ErrInvalidArgument)
	}
	return b.ResolveReference(ref), nil
}

// encoderFor returns nil for UTF-8 and unknown labels.
func encoderFor(charset string) *encoding.Encoder {
	e, err := htmlindex.Get(charset)
	if err != nil {
		return nil
	}
	if name, _ := htmlindex.Name(e); name == "utf-8" {
		return nil
	}
	return encoding.HTMLEscapeUnsupported(e.NewEncoder())
}

func collect(f *form.Form, enc *encoding.Encoder) ([]entry, error) {
	var out []entry
	for _, c := range []*form.FieldCollection{f.Fields, f.Controls} {
		for _, field := range c.All() {
			for _, v := range field.SelectedValues() {
				e := entry{name: field.Name(), value: v.Value()}
				if v.HasAttachment() {
					e.filename, e.path = v.Filename(), v.BinaryPath()
					e.value = e.filename
				}
				var err error
				if e.name, err = transcode(enc, e.name); err != nil {
					return nil, err
				}
				if e.value, err = transcode(enc, e.value); err != nil {
					return nil, err
				}
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func transcode(enc *encoding.Encoder, s string) (string, error) {
	if enc == nil {
		return s, nil
	}
	out, err := enc.String(s)
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", s, err)
	}
	return out, nil
}

// urlEncode keeps entry order, which url.Values would lose.
func urlEncode(entries []entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, url.QueryEscape(e.name)+"="+url.QueryEscape(e.value))
	}
	return strings.Join(parts, "&")
}

func plainBody(entries []entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.name)
		b.WriteByte('=')
		b.WriteString(e.value)
		b.WriteString("\r\n")
	}
	return b.String()
}

func multipartBody(entries []entry, opts Options) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if opts.Boundary != "" {
		if err := w.SetBoundary(opts.Boundary); err != nil {
			return nil, "", fmt.Errorf("multipart boundary: %v: %w", err, form.ErrInvalidArgument)
		}
	}
	for _, e := range entries {
		if e.path == "" {
			if err := w.WriteField(e.name, e.value); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writeFile(w, opts.Fs, e); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, fs afero.Fs, e entry) error {
	src, err := fs.Open(e.path)
	if err != nil {
		return fmt.Errorf("open attachment for %q: %w", e.name, err)
	}
	defer src.Close()
	part, err := w.CreateFormFile(e.name, e.filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("read attachment %s: %w", e.path, err)
	}
	return nil
}
