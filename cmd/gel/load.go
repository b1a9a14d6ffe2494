package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/gel/internal/listmodel"
	"github.com/maruel/gel/internal/record"
)

// loader feeds input files into a store. Several files may hold a record
// with the same key: the most recently loaded one is shown, and the record
// only leaves the store once no file holds it anymore.
type loader struct {
	store *listmodel.Store
	log   *slog.Logger
	// files maps a path to the records it holds, by key.
	files map[string]map[string]record.Value
	// owners maps a key to the paths holding it, most recently loaded last.
	owners map[string][]string
}

func newLoader(store *listmodel.Store, log *slog.Logger) *loader {
	return &loader{
		store:  store,
		log:    log,
		files:  make(map[string]map[string]record.Value),
		owners: make(map[string][]string),
	}
}

// load reads path and upserts its records. Records the file no longer holds
// are removed, or replaced by another file's version.
func (l *loader) load(path string) error {
	vs, err := readRecords(path)
	if err != nil {
		return err
	}
	l.store.AddAll(vs)
	recs := make(map[string]record.Value, len(vs))
	for _, v := range vs {
		k, err := l.store.KeyOf(v)
		if err != nil {
			continue
		}
		recs[k] = v
		l.owners[k] = append(slices.DeleteFunc(l.owners[k], func(p string) bool { return p == path }), path)
	}
	removed := 0
	for k := range l.files[path] {
		if _, ok := recs[k]; !ok && l.release(path, k) {
			removed++
		}
	}
	l.files[path] = recs
	l.log.Debug("Loaded file", "path", path, "records", len(vs), "removed", removed)
	return nil
}

// unload drops every record path contributed.
func (l *loader) unload(path string) {
	for k := range l.files[path] {
		l.release(path, k)
	}
	delete(l.files, path)
	l.log.Debug("Unloaded file", "path", path)
}

// release drops path's claim on key k. It reports whether the record left the
// store.
func (l *loader) release(path, k string) bool {
	owners := slices.DeleteFunc(l.owners[k], func(p string) bool { return p == path })
	if len(owners) == 0 {
		delete(l.owners, k)
		return l.store.RemoveKey(k)
	}
	l.owners[k] = owners
	if v, ok := l.files[owners[len(owners)-1]][k]; ok {
		l.store.Add(v)
	}
	return false
}

// readRecords decodes a JSON Lines file (.jsonl, .ndjson) or a JSON document.
// A top-level array is a batch of records.
func readRecords(path string) ([]record.Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		vs, err := record.ReadJSONL(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return vs, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		v, err := record.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if !v.IsArray() {
			return []record.Value{v}, nil
		}
		vs := make([]record.Value, 0, v.Len())
		for _, e := range v.Elements() {
			vs = append(vs, e)
		}
		return vs, nil
	}
}
