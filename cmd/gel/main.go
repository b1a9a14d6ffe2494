// Package main is the entry point for gel.
//
// gel loads JSON and JSON Lines records into an identity-keyed store, projects
// them through a sorted and filtered view, and prints the visible records as
// JSON Lines. The view is described by flags and an optional YAML config
// file. With -watch, the input files are reloaded when they change and the
// view is printed again.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/gel/internal/collection"
	"github.com/maruel/gel/internal/config"
	"github.com/maruel/gel/internal/listmodel"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "gel: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "YAML file configuring the store and the view")
	idAttribute := flag.String("id", "", "Identity field of structured records (default \"id\")")
	dynamic := flag.Bool("dynamic", false, "Discover roles from every record instead of the first of each file")
	sortRole := flag.String("sort", "", "Role to sort on")
	descending := flag.Bool("desc", false, "Sort in descending order")
	caseSensitive := flag.Bool("case-sensitive", false, "Compare text case sensitively")
	locale := flag.String("locale", "", "Collate text following this BCP 47 locale (e.g. fr, de-CH)")
	schema := flag.Bool("schema", false, "Print the JSON schema of the loaded records and exit")
	watch := flag.Bool("watch", false, "Reload input files when they change")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: gel [flags] <file.json|file.jsonl>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("no input file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	if err := ll.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	// Flags explicitly set override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			cfg.Store.IDAttribute = *idAttribute
		case "dynamic":
			cfg.Store.DynamicRoles = *dynamic
		case "sort":
			cfg.View.SortRole = *sortRole
			cfg.View.Sort = nil
		case "desc":
			cfg.View.Descending = *descending
		case "case-sensitive":
			cfg.View.CaseSensitive = *caseSensitive
		case "locale":
			cfg.View.Locale = *locale
			cfg.View.LocaleAware = *locale != ""
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	store := listmodel.New(cfg.Store.Options(logger))
	ld := newLoader(store, logger)
	for _, path := range flag.Args() {
		if err := ld.load(path); err != nil {
			return err
		}
	}
	if *schema {
		return printSchema(os.Stdout, store)
	}

	opts, err := cfg.View.Options(store, logger)
	if err != nil {
		return err
	}
	view := collection.New(store, opts)
	slog.DebugContext(ctx, "View ready", "records", store.Len(), "visible", view.Len(), "locale", localeName(opts.Sort))
	if err := printView(os.Stdout, view); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	view.AddObserver(&listmodel.Funcs{
		Reset:       func() { slog.InfoContext(ctx, "View reset", "rows", view.Len()) },
		Insert:      func(r listmodel.Range) { slog.InfoContext(ctx, "Rows inserted", "range", r) },
		Remove:      func(r listmodel.Range) { slog.InfoContext(ctx, "Rows removed", "range", r) },
		DataChanged: func(r listmodel.Range) { slog.InfoContext(ctx, "Rows changed", "range", r) },
		RolesAdded:  func(roles []string) { slog.InfoContext(ctx, "Roles added", "roles", roles) },
	})
	return watchFiles(ctx, ld, flag.Args(), func() {
		if err := printView(os.Stdout, view); err != nil {
			slog.ErrorContext(ctx, "Failed to print view", "err", err)
		}
	})
}

func localeName(so collection.SortOptions) string {
	if !so.LocaleAware || so.Locale == language.Und {
		return ""
	}
	return so.Locale.String()
}

// printView writes the visible records as JSON Lines.
func printView(w io.Writer, view *collection.Collection) error {
	var buf []byte
	for _, v := range view.Snapshot(false) {
		buf = v.AppendJSON(buf)
		buf = append(buf, '\n')
	}
	_, err := w.Write(buf)
	return err
}

func printSchema(w io.Writer, store *listmodel.Store) error {
	data, err := json.MarshalIndent(store.JSONSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("gel %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
