package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/apiclient"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/httpx"
	"github.com/adityalohuni/htmlform/internal/service"
)

const profilePage = `<html><body>
<form name="search" action="/q"><input name="q" value="go"></form>
<form id="profile" action="/profile" method="post" enctype="multipart/form-data">
  <input name="nick" value="gopher">
  <input type="file" name="avatar">
  <input type="radio" name="plan" value="free" checked>
  <input type="radio" name="plan" value="pro">
  <input type="submit" name="save" value="Save">
</form>
</body></html>`

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"--id", "profile", "--format", "PAIRS", "--attach", "avatar=a,b.png", "page.html"})
	require.NoError(t, err)
	assert.Equal(t, "profile", opts.ID)
	assert.Equal(t, formatPairs, opts.Format)
	assert.Equal(t, []string{"avatar=a,b.png"}, opts.Attach)
	assert.Equal(t, "page.html", opts.Input)
	assert.Equal(t, -1, opts.Index)

	sel, err := opts.selector()
	require.NoError(t, err)
	assert.Equal(t, `id="profile"`, sel.String())
}

func TestParseOptionsFromEnv(t *testing.T) {
	t.Setenv("HTMLFORM_FORMAT", "yaml")
	t.Setenv("HTMLFORM_INDEX", "1")
	opts, err := parseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, formatYAML, opts.Format)
	assert.Equal(t, 1, opts.Index)
	assert.Equal(t, "-", opts.Input)
}

func TestParseOptionsRejects(t *testing.T) {
	for _, args := range [][]string{
		{"--format", "xml"},
		{"--all", "--name", "x"},
		{"--all", "--format", "request"},
		{"a.html", "b.html"},
	} {
		_, err := parseOptions(args)
		assert.Error(t, err, "args %v", args)
	}
	_, err := parseOptions([]string{"--name", "a", "--id", "b"})
	require.NoError(t, err)
}

func TestRunLocalPairsAndControl(t *testing.T) {
	opts, err := parseOptions([]string{"--id", "profile", "--format", "pairs", "--select", "plan=pro", "--control", "save"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runLocal(opts, profilePage, afero.NewMemMapFs(), &out))
	assert.Equal(t, "nick=gopher\navatar=\nplan=free\nplan=pro\nsave=Save\n", out.String())
}

func TestRunLocalRequestWithAttachment(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/tmp/me.png", []byte("PNGDATA"), 0o644))

	opts, err := parseOptions([]string{"--id", "profile", "--format", "request", "--base", "https://example.com/settings", "--boundary", "XBOUNDARY", "--attach", "avatar=/tmp/me.png"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runLocal(opts, profilePage, fsys, &out))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "POST https://example.com/profile\n"), text)
	assert.Contains(t, text, "Content-Type: multipart/form-data; boundary=XBOUNDARY")
	assert.Contains(t, text, `filename="me.png"`)
	assert.Contains(t, text, "PNGDATA")

	opts.Format = formatAttachments
	out.Reset()
	require.NoError(t, runLocal(opts, profilePage, fsys, &out))
	assert.Equal(t, "avatar\tme.png\t/tmp/me.png\n", out.String())
}

func TestRunLocalAll(t *testing.T) {
	opts, err := parseOptions([]string{"--all"})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, runLocal(opts, profilePage, afero.NewMemMapFs(), &out))
	assert.Contains(t, out.String(), `"name": "search"`)
	assert.Contains(t, out.String(), `"id": "profile"`)

	opts.Select = []string{"plan=pro"}
	assert.Error(t, runLocal(opts, profilePage, afero.NewMemMapFs(), &out))
}

func TestReadInput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "page.html", []byte("<form></form>"), 0o644))
	got, err := readInput(fsys, "page.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "<form></form>", got)

	got, err = readInput(fsys, "-", strings.NewReader("stdin"))
	require.NoError(t, err)
	assert.Equal(t, "stdin", got)

	_, err = readInput(fsys, "missing.html", nil)
	assert.Error(t, err)
}

func TestRemoteSession(t *testing.T) {
	svc, err := service.New(formstore.NewStore(""), service.Options{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	mux := http.NewServeMux()
	(&api.Handlers{StartedAt: time.Now(), Service: svc}).Register(mux, httpx.RequireToken("tok"))
	srv := httptest.NewServer(mux)
	defer srv.Close()
	client := apiclient.New(srv.URL, "tok", srv.Client())

	opts, err := parseOptions([]string{"--id", "profile", "--format", "pairs", "--select", "plan=pro"})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, remoteSession(context.Background(), client, opts, profilePage, &out))
	assert.Equal(t, "nick=gopher\navatar=\nplan=free\nplan=pro\n", out.String())
	assert.Equal(t, 1, svc.Stats().StoredForms)

	opts, err = parseOptions([]string{"--all", "--format", "yaml"})
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, remoteSession(context.Background(), client, opts, profilePage, &out))
	assert.Contains(t, out.String(), "selector: index=1")
	assert.Equal(t, 3, svc.Stats().StoredForms)
}
