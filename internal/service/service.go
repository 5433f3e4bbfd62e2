// Package service is the shared entry point the daemon surfaces use: it
// parses markup (with a page cache), keeps results in the form store and
// applies selection changes to stored forms.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/submission"
)

const (
	defaultCacheSize  = 128
	defaultStoreLimit = 1000
)

const (
	CollectionFields   = "fields"
	CollectionControls = "controls"
)

type Options struct {
	CacheSize  int
	StoreLimit int
	Logger     *log.Logger
}

type Service struct {
	store      *formstore.Store
	pages      *lru.Cache[string, *extract.Page]
	storeLimit int
	logger     *log.Logger
}

type ParseRequest struct {
	Markup   string               `json:"markup" jsonschema:"HTML document or fragment containing the form"`
	Source   string               `json:"source,omitempty" jsonschema:"free-form label for where the markup came from"`
	Selector extract.SelectorSpec `json:"selector,omitempty" jsonschema:"which form to extract; the first form when empty"`
}

type SelectRequest struct {
	FormID     string `json:"formId" jsonschema:"id of a stored form"`
	Collection string `json:"collection,omitempty" jsonschema:"fields or controls; defaults to fields"`
	Name       string `json:"name" jsonschema:"field or control name"`
	Value      string `json:"value,omitempty" jsonschema:"value to toggle; for controls empty picks the first value"`
	Selected   bool   `json:"selected" jsonschema:"new selection state"`
}

type Submission struct {
	FormID      string            `json:"formId"`
	Pairs       []form.Pair       `json:"pairs"`
	Attachments []form.Attachment `json:"attachments"`
}

type Stats struct {
	StoredForms int `json:"stored_forms"`
	CachedPages int `json:"cached_pages"`
}

func New(store *formstore.Store, opts Options) (*Service, error) {
	if store == nil {
		store = formstore.NewStore("")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	pages, err := lru.New[string, *extract.Page](size)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	limit := opts.StoreLimit
	if limit <= 0 {
		limit = defaultStoreLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, pages: pages, storeLimit: limit, logger: logger}, nil
}

// Parse extracts one form and stores it.
func (s *Service) Parse(ctx context.Context, req ParseRequest) (formstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return formstore.Entry{}, err
	}
	sel, err := req.Selector.Selector()
	if err != nil {
		return formstore.Entry{}, err
	}
	page, err := s.page(req.Markup)
	if err != nil {
		return formstore.Entry{}, err
	}
	f, err := page.Form(sel)
	if err != nil {
		return formstore.Entry{}, err
	}
	return s.put(formstore.Entry{Source: req.Source, Selector: sel.String(), Form: f.Record()})
}

// ParseAll extracts and stores every form of the document in order.
func (s *Service) ParseAll(ctx context.Context, markup, source string) ([]formstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := s.page(markup)
	if err != nil {
		return nil, err
	}
	forms := page.Forms()
	out := make([]formstore.Entry, 0, len(forms))
	for i, f := range forms {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		entry, err := s.put(formstore.Entry{Source: source, Selector: extract.ByIndex(i).String(), Form: f.Record()})
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Service) Get(id string) (formstore.Entry, error) {
	entry, ok := s.store.Get(strings.TrimSpace(id))
	if !ok {
		return formstore.Entry{}, fmt.Errorf("stored form %q: %w", id, form.ErrNotFound)
	}
	return entry, nil
}

func (s *Service) Latest() (formstore.Entry, error) {
	entry, ok := s.store.Latest()
	if !ok {
		return formstore.Entry{}, fmt.Errorf("latest form: %w", form.ErrNotFound)
	}
	return entry, nil
}

func (s *Service) List() []formstore.Entry {
	return s.store.List()
}

func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// Select changes the selection of a stored form's value. Selecting a control
// deactivates every other control.
func (s *Service) Select(ctx context.Context, req SelectRequest) (formstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return formstore.Entry{}, err
	}
	// the store lock spans decode, edit and write so a concurrent Select or
	// Delete cannot interleave
	return s.store.Update(strings.TrimSpace(req.FormID), func(e *formstore.Entry) error {
		f, err := form.FromRecord(e.Form)
		if err != nil {
			return fmt.Errorf("stored form %s: %w", e.ID, err)
		}
		if err := applySelect(f, req); err != nil {
			return err
		}
		e.Form = f.Record()
		return nil
	})
}

func applySelect(f *form.Form, req SelectRequest) error {
	switch req.Collection {
	case "", CollectionFields:
		return f.Fields.SetSelected(req.Name, req.Value, req.Selected)
	case CollectionControls:
		if req.Selected {
			return f.SelectControl(req.Name, req.Value)
		}
		return f.Controls.SetSelected(req.Name, req.Value, false)
	default:
		return fmt.Errorf("unknown collection %q: %w", req.Collection, form.ErrInvalidArgument)
	}
}

func (s *Service) Submission(id string) (Submission, error) {
	entry, f, err := s.load(id)
	if err != nil {
		return Submission{}, err
	}
	pairs := f.SubmissionPairs()
	if pairs == nil {
		pairs = []form.Pair{}
	}
	attachments := f.FileAttachments()
	if attachments == nil {
		attachments = []form.Attachment{}
	}
	return Submission{FormID: entry.ID, Pairs: pairs, Attachments: attachments}, nil
}

// Prepare builds the request the stored form would submit, resolving its
// action against baseURL.
func (s *Service) Prepare(id, baseURL string) (*submission.Request, error) {
	_, f, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return submission.Prepare(f, submission.Options{BaseURL: baseURL})
}

func (s *Service) Stats() Stats {
	return Stats{StoredForms: s.store.Count(), CachedPages: s.pages.Len()}
}

func (s *Service) load(id string) (formstore.Entry, *form.Form, error) {
	entry, err := s.Get(id)
	if err != nil {
		return formstore.Entry{}, nil, err
	}
	f, err := form.FromRecord(entry.Form)
	if err != nil {
		return formstore.Entry{}, nil, fmt.Errorf("stored form %s: %w", entry.ID, err)
	}
	return entry, f, nil
}

func (s *Service) put(entry formstore.Entry) (formstore.Entry, error) {
	saved, err := s.store.Put(entry)
	if err != nil {
		s.logger.Printf("form store save failed: %v", err)
		return saved, err
	}
	if removed, err := s.store.Compact(s.storeLimit); err != nil {
		s.logger.Printf("form store compact failed: %v", err)
	} else if removed > 0 {
		s.logger.Printf("form store compacted: removed %d", removed)
	}
	return saved, nil
}

// page returns the parsed document for markup. Pages are read-only after
// construction and shared between callers.
func (s *Service) page(markup string) (*extract.Page, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("markup is required: %w", form.ErrInvalidArgument)
	}
	sum := sha256.Sum256([]byte(markup))
	key := hex.EncodeToString(sum[:])
	if page, ok := s.pages.Get(key); ok {
		return page, nil
	}
	page, err := extract.Load(markup)
	if err != nil {
		return nil, err
	}
	s.pages.Add(key, page)
	return page, nil
}
