package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/maruel/gel/internal/collection"
	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/language"
)

const sample = `
store:
  id_attribute: sku
  dynamic_roles: true
  attached:
    source: inventory
view:
  sort:
    - property: x
      direction: desc
  case_sensitive: false
  locale_aware: true
  locale: fr
  filters:
    - property: x
      operator: gt
      value: 1
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.IDAttribute != "sku" || !cfg.Store.DynamicRoles {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if got := cfg.Store.Attached["source"]; got != "inventory" {
		t.Errorf("Attached[source] = %v", got)
	}
	want := []collection.Sort{{Property: "x", Direction: collection.SortDesc}}
	if !slices.Equal(cfg.View.Sort, want) {
		t.Errorf("Sort = %+v, want %+v", cfg.View.Sort, want)
	}
	if len(cfg.View.Filters) != 1 || cfg.View.Filters[0].Operator != collection.FilterOpGreaterThan {
		t.Errorf("Filters = %+v", cfg.View.Filters)
	}
	if tag, _ := cfg.View.locale(); tag != language.French {
		t.Errorf("locale = %v", tag)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "store: [", "failed to parse config"},
		{"unknown operator", "view:\n  filters: [{property: x, operator: like}]", `unknown operator "like"`},
		{"nested operator", "view:\n  filters: [{or: [{property: x, operator: nope}]}]", "or[0]"},
		{"sort property", "view:\n  sort: [{direction: asc}]", "property is required"},
		{"sort direction", "view:\n  sort: [{property: x, direction: up}]", `invalid direction "up"`},
		{"locale", "view:\n  locale: not_a_locale!", "locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gel.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOptions(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	s := listmodel.New(cfg.Store.Options(quietLogger()))
	for _, d := range []string{`{"sku":"a","x":1}`, `{"sku":"b","x":3}`, `{"sku":"c","x":2}`} {
		v, err := record.Parse([]byte(d))
		if err != nil {
			t.Fatal(err)
		}
		s.Add(v)
	}
	if got := s.Field(0, "source").String(); got != "inventory" {
		t.Errorf("attached source = %q", got)
	}
	opts, err := cfg.View.Options(s, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Sort.LocaleAware || opts.Sort.Locale != language.French {
		t.Errorf("Sort = %+v", opts.Sort)
	}
	c := collection.New(s, opts)
	var got []string
	for i := range c.Len() {
		got = append(got, c.Field(i, "sku").String())
	}
	if want := []string{"b", "c"}; !slices.Equal(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestOptionsSortRole(t *testing.T) {
	cfg, err := Parse([]byte("view:\n  sort_role: name\n  descending: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.View.Options(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Comparator != nil || opts.Predicate != nil {
		t.Error("expected no comparator and no predicate")
	}
	want := collection.SortOptions{Role: "name", Descending: true, Locale: language.Und}
	if opts.Sort != want {
		t.Errorf("Sort = %+v, want %+v", opts.Sort, want)
	}
}

func TestOptionsSortAttached(t *testing.T) {
	cfg, err := Parse([]byte("view:\n  sort:\n    - property: rank\n"))
	if err != nil {
		t.Fatal(err)
	}
	s := listmodel.New(listmodel.Options{Logger: quietLogger()})
	for _, d := range []string{`{"id":"a","x":3}`, `{"id":"b","x":1}`, `{"id":"c","x":2}`} {
		v, err := record.Parse([]byte(d))
		if err != nil {
			t.Fatal(err)
		}
		s.Add(v)
	}
	s.SetAttached("rank", listmodel.Computed(func(v record.Value, _ int) record.Value {
		x, _ := v.Get("x")
		return x
	}))
	opts, err := cfg.View.Options(s, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	c := collection.New(s, opts)
	var got []string
	for i := range c.Len() {
		got = append(got, c.Field(i, "id").String())
	}
	if want := []string{"b", "c", "a"}; !slices.Equal(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}
