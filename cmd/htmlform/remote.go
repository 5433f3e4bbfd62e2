package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/apiclient"
	"github.com/adityalohuni/htmlform/internal/config"
	"github.com/adityalohuni/htmlform/internal/extract"
	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/service"
)

// runRemote parses through the daemon so the forms end up in its store.
func runRemote(ctx context.Context, opts options, markup string, w io.Writer) error {
	if len(opts.Attach) > 0 {
		return errors.New("--attach is not supported with --remote")
	}
	if opts.All && hasEdits(opts) {
		return errors.New("--select and --control need a single form")
	}
	server, token := opts.Server, opts.Token
	if server == "" || token == "" {
		settings, err := config.LoadOrCreate("")
		if err != nil {
			return err
		}
		if server == "" {
			server = settings.ClientBaseURL
		}
		if token == "" {
			token = settings.APIToken
		}
	}
	client := apiclient.New(server, token, &http.Client{Timeout: 10 * time.Second})
	return remoteSession(ctx, client, opts, markup, w)
}

func remoteSession(ctx context.Context, client *apiclient.Client, opts options, markup string, w io.Writer) error {
	payload := api.ParsePayload{
		ParseRequest: service.ParseRequest{Markup: markup, Source: opts.Input},
		All:          opts.All,
	}
	if !opts.All {
		payload.Selector = extract.SelectorSpec{Name: opts.Name, ID: opts.ID}
		if opts.Index >= 0 {
			i := opts.Index
			payload.Selector.Index = &i
		}
	}
	entries, err := client.Parse(ctx, payload)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return writeEntries(w, opts.Format, entries)
	}

	if !opts.All {
		entry := entries[0]
		for _, s := range opts.Select {
			name, value, ok := splitAssignment(s)
			if !ok || name == "" {
				return fmt.Errorf("--select %q: expected name=value", s)
			}
			if entry, err = client.Select(ctx, entry.ID, api.SelectPayload{Name: name, Value: value, Selected: true}); err != nil {
				return err
			}
		}
		if opts.Control != "" {
			name, value, _ := splitAssignment(opts.Control)
			if entry, err = client.Select(ctx, entry.ID, api.SelectPayload{
				Collection: service.CollectionControls, Name: name, Value: value, Selected: true,
			}); err != nil {
				return err
			}
		}
		entries[0] = entry
	}

	switch opts.Format {
	case formatPairs, formatAttachments:
		for i, e := range entries {
			sub, err := client.Submission(ctx, e.ID)
			if err != nil {
				return err
			}
			if opts.Format == formatAttachments {
				err = writeAttachments(w, sub.Attachments)
			} else {
				if i > 0 {
					fmt.Fprintln(w)
				}
				err = writePairs(w, sub.Pairs)
			}
			if err != nil {
				return err
			}
		}
		return nil
	case formatRequest:
		preview, err := client.Request(ctx, entries[0].ID, opts.Base)
		if err != nil {
			return err
		}
		return writeRequest(w, preview.Method, preview.URL, preview.ContentType, preview.Body)
	default:
		return writeEntries(w, opts.Format, entries)
	}
}

func writeEntries(w io.Writer, format string, entries []formstore.Entry) error {
	if entries == nil {
		entries = []formstore.Entry{}
	}
	if format == formatYAML {
		return yamlEntries(w, entries)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

type yamlEntry struct {
	ID        string      `yaml:"id"`
	Source    string      `yaml:"source,omitempty"`
	Selector  string      `yaml:"selector"`
	Form      form.Record `yaml:"form"`
	UpdatedAt time.Time   `yaml:"updated_at"`
}

func yamlEntries(w io.Writer, entries []formstore.Entry) error {
	out := make([]yamlEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, yamlEntry{ID: e.ID, Source: e.Source, Selector: e.Selector, Form: e.Form, UpdatedAt: e.UpdatedAt})
	}
	return form.EncodeYAML(w, out)
}
