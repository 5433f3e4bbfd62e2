package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adityalohuni/htmlform/internal/extract"
)

const envPrefix = "HTMLFORM"

const (
	formatJSON        = "json"
	formatYAML        = "yaml"
	formatPairs       = "pairs"
	formatAttachments = "attachments"
	formatRequest     = "request"
)

var errUsage = errors.New("usage")

type options struct {
	Input    string
	Name     string
	ID       string
	Index    int
	All      bool
	Format   string
	Base     string
	Attach   []string
	Select   []string
	Control  string
	Remote   bool
	Server   string
	Token    string
	Boundary string
}

func (o options) selector() (extract.Selector, error) {
	spec := extract.SelectorSpec{Name: o.Name, ID: o.ID}
	if o.Index >= 0 {
		i := o.Index
		spec.Index = &i
	}
	return spec.Selector()
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("htmlform", pflag.ContinueOnError)
	fs.String("name", "", "Extract the form with this name attribute")
	fs.String("id", "", "Extract the form with this id attribute")
	fs.Int("index", -1, "Extract the form at this zero-based position")
	fs.Bool("all", false, "Extract every form of the document")
	fs.String("format", formatJSON, "Output format: json, yaml, pairs, attachments or request")
	fs.String("base", "", "URL of the page the markup came from, used to resolve the form action")
	fs.StringArray("attach", nil, "Attach a file to a file input: name=path (repeatable)")
	fs.StringArray("select", nil, "Select a field value: name=value (repeatable)")
	fs.String("control", "", "Activate a control: name or name=value")
	fs.Bool("remote", false, "Parse through a running formd daemon instead of locally")
	fs.String("server", "", "Daemon base URL for --remote (defaults to the config file)")
	fs.String("token", "", "Daemon API token for --remote (defaults to the config file)")
	fs.String("boundary", "", "Multipart boundary for --format request")
	return fs
}

// parseOptions reads flags from args. Every flag can also be set through an
// HTMLFORM_<FLAG> environment variable.
func parseOptions(args []string) (options, error) {
	fs := newFlagSet()
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: htmlform [flags] [file|-]\n\n")
		fmt.Fprintf(os.Stderr, "Extracts <form> elements from HTML and prints their submission data.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  htmlform page.html                          # first form as JSON\n")
		fmt.Fprintf(os.Stderr, "  htmlform --id login --format pairs page.html\n")
		fmt.Fprintf(os.Stderr, "  curl -s https://example.com | htmlform --all --format yaml\n")
		fmt.Fprintf(os.Stderr, "  htmlform --attach avatar=./me.png --format request --base https://example.com/profile page.html\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return options{}, errUsage
		}
		return options{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return options{}, err
	}

	opts := options{
		Name:     v.GetString("name"),
		ID:       v.GetString("id"),
		Index:    v.GetInt("index"),
		All:      v.GetBool("all"),
		Format:   strings.ToLower(strings.TrimSpace(v.GetString("format"))),
		Base:     v.GetString("base"),
		Control:  v.GetString("control"),
		Remote:   v.GetBool("remote"),
		Server:   v.GetString("server"),
		Token:    v.GetString("token"),
		Boundary: v.GetString("boundary"),
	}
	// StringArray values keep commas intact, so read them from the flag set.
	opts.Attach, _ = fs.GetStringArray("attach")
	opts.Select, _ = fs.GetStringArray("select")

	switch fs.NArg() {
	case 0:
		opts.Input = "-"
	case 1:
		opts.Input = fs.Arg(0)
	default:
		return options{}, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	switch opts.Format {
	case formatJSON, formatYAML, formatPairs, formatAttachments, formatRequest:
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.Format)
	}
	if opts.All && (opts.Name != "" || opts.ID != "" || opts.Index >= 0) {
		return options{}, errors.New("--all cannot be combined with --name, --id or --index")
	}
	if opts.All && opts.Format == formatRequest {
		return options{}, errors.New("--format request needs a single form")
	}
	return opts, nil
}

func readInput(fsys afero.Fs, path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitAssignment splits name=value. A missing "=" yields an empty value.
func splitAssignment(s string) (string, string, bool) {
	name, value, ok := strings.Cut(s, "=")
	return strings.TrimSpace(name), value, ok
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if errors.Is(err, errUsage) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "htmlform: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsys := afero.NewOsFs()
	markup, err := readInput(fsys, opts.Input, os.Stdin)
	if err == nil {
		if opts.Remote {
			err = runRemote(ctx, opts, markup, os.Stdout)
		} else {
			err = runLocal(opts, markup, fsys, os.Stdout)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "htmlform: %v\n", err)
		os.Exit(1)
	}
}
