// Package config loads store and view settings from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/maruel/gel/internal/collection"
	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config is the root of a configuration file.
type Config struct {
	Store StoreConfig `yaml:"store"`
	View  ViewConfig  `yaml:"view"`
}

// StoreConfig configures a listmodel.Store.
type StoreConfig struct {
	IDAttribute  string `yaml:"id_attribute,omitempty"`
	DynamicRoles bool   `yaml:"dynamic_roles,omitempty"`
	// Attached maps a role name to a constant value exposed on every record.
	Attached map[string]any `yaml:"attached,omitempty"`
}

// ViewConfig configures a collection.Collection.
type ViewConfig struct {
	// SortRole is used when Sort is empty.
	SortRole      string              `yaml:"sort_role,omitempty"`
	Sort          []collection.Sort   `yaml:"sort,omitempty"`
	Descending    bool                `yaml:"descending,omitempty"`
	CaseSensitive bool                `yaml:"case_sensitive,omitempty"`
	LocaleAware   bool                `yaml:"locale_aware,omitempty"`
	Locale        string              `yaml:"locale,omitempty"` // BCP 47, e.g. "fr" or "de-CH"
	Filters       []collection.Filter `yaml:"filters,omitempty"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	return c.View.Validate()
}

// Validate checks sorts, filters and the locale.
func (v *ViewConfig) Validate() error {
	for i := range v.Sort {
		s := &v.Sort[i]
		if s.Property == "" {
			return fmt.Errorf("sort %d: property is required", i)
		}
		switch s.Direction {
		case "", collection.SortAsc, collection.SortDesc:
		default:
			return fmt.Errorf("sort %q: invalid direction %q", s.Property, s.Direction)
		}
	}
	for i := range v.Filters {
		if err := v.Filters[i].Validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	if _, err := v.locale(); err != nil {
		return err
	}
	return nil
}

func (v *ViewConfig) locale() (language.Tag, error) {
	if v.Locale == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(v.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("locale %q: %w", v.Locale, err)
	}
	return tag, nil
}

// Options returns the store options described by the configuration.
func (s *StoreConfig) Options(log *slog.Logger) listmodel.Options {
	opts := listmodel.Options{
		IDAttribute:  s.IDAttribute,
		DynamicRoles: s.DynamicRoles,
		Logger:       log,
	}
	if len(s.Attached) != 0 {
		opts.Attached = make(map[string]listmodel.Attached, len(s.Attached))
		for name, v := range s.Attached {
			opts.Attached[name] = listmodel.Constant(record.FromAny(v))
		}
	}
	return opts
}

// Options returns the collection options described by the configuration.
// Filters resolve roles through l, or on the records themselves when l is nil.
func (v *ViewConfig) Options(l listmodel.List, log *slog.Logger) (collection.Options, error) {
	tag, err := v.locale()
	if err != nil {
		return collection.Options{}, err
	}
	opts := collection.Options{
		Sort: collection.SortOptions{
			Role:          v.SortRole,
			Descending:    v.Descending,
			CaseSensitive: v.CaseSensitive,
			LocaleAware:   v.LocaleAware,
			Locale:        tag,
		},
		Sorts:  v.Sort,
		Logger: log,
	}
	opts.Predicate = collection.MatchFilters(l, v.Filters)
	return opts, nil
}
