// Package memstore is an in-memory implementation of store.Library. It backs
// dry runs and tests; nothing survives the process.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/tblimport/internal/store"
)

type table struct {
	keys  []string
	names []string
	rows  []map[string]string
}

func (t *table) clone() *table {
	c := &table{
		keys:  append([]string(nil), t.keys...),
		names: append([]string(nil), t.names...),
		rows:  make([]map[string]string, len(t.rows)),
	}
	for i, r := range t.rows {
		row := make(map[string]string, len(r))
		for k, v := range r {
			row[k] = v
		}
		c.rows[i] = row
	}
	return c
}

func (t *table) keyOf(values map[string]string) string {
	key := ""
	for _, k := range t.keys {
		key += values[k] + "\x00"
	}
	return key
}

// Store holds every library created through it.
type Store struct {
	mu   sync.Mutex
	libs map[string]map[string]*table
	ops  []string
}

// New creates an empty store.
func New() *Store {
	return &Store{libs: make(map[string]map[string]*table)}
}

// Library returns a handle on the named library. Handles share the store's
// tables but track their own open tables.
func (s *Store) Library(name string) *Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.libs[name]; !ok {
		s.libs[name] = make(map[string]*table)
	}
	return &Library{s: s, name: name, open: make(map[string]*handle)}
}

// Ops returns the mutating operations issued so far, e.g. "create LIB/T1".
func (s *Store) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// Rows returns a copy of a committed table's rows.
func (s *Store) Rows(library, name string) ([]map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.libs[library][name]
	if !ok {
		return nil, false
	}
	return t.clone().rows, true
}

// Put seeds a committed table, bypassing the library calling sequence.
func (s *Store) Put(library, name string, keys, names []string, rows ...map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.libs[library]; !ok {
		s.libs[library] = make(map[string]*table)
	}
	t := &table{keys: keys, names: names, rows: rows}
	s.libs[library][name] = t.clone()
}

type handle struct {
	mode store.OpenMode
	work *table
}

// Library implements store.Library over a Store.
type Library struct {
	s        *Store
	name     string
	open     map[string]*handle
	released bool
}

var _ store.Library = (*Library)(nil)

func (l *Library) record(op, table string) {
	l.s.ops = append(l.s.ops, fmt.Sprintf("%s %s/%s", op, l.name, table))
}

func (l *Library) Create(_ context.Context, name string, keys, names []string, mode store.CreateMode) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.released {
		return store.ErrReleased
	}
	if _, ok := l.open[name]; ok {
		return fmt.Errorf("create %s: %w", name, store.ErrAlreadyOpen)
	}
	if _, exists := l.s.libs[l.name][name]; exists && mode == store.CreateNew {
		return fmt.Errorf("create %s: %w", name, store.ErrExists)
	}
	l.record("create", name)
	l.open[name] = &handle{
		mode: store.OpenWrite,
		work: &table{keys: append([]string(nil), keys...), names: append([]string(nil), names...)},
	}
	return nil
}

func (l *Library) Open(_ context.Context, name string, mode store.OpenMode) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.released {
		return store.ErrReleased
	}
	if _, ok := l.open[name]; ok {
		return fmt.Errorf("open %s: %w", name, store.ErrAlreadyOpen)
	}
	t, ok := l.s.libs[l.name][name]
	if !ok {
		return fmt.Errorf("open %s: %w", name, store.ErrNotExist)
	}
	l.open[name] = &handle{mode: mode, work: t.clone()}
	return nil
}

func (l *Library) Query(_ context.Context, name string) (store.Shape, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	h, ok := l.open[name]
	if !ok {
		return store.Shape{}, fmt.Errorf("query %s: %w", name, store.ErrNotOpen)
	}
	return store.Shape{
		Keys:  store.WrapList(h.work.keys),
		Names: store.WrapList(h.work.names),
		Rows:  len(h.work.rows),
	}, nil
}

func (l *Library) Append(_ context.Context, name string, values map[string]string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	h, ok := l.open[name]
	if !ok || h.mode != store.OpenWrite {
		return fmt.Errorf("append %s: %w", name, store.ErrNotOpen)
	}
	row := make(map[string]string, len(h.work.keys)+len(h.work.names))
	for _, f := range h.work.keys {
		row[f] = values[f]
	}
	for _, f := range h.work.names {
		row[f] = values[f]
	}
	if len(h.work.keys) > 0 {
		key := h.work.keyOf(row)
		for _, existing := range h.work.rows {
			if h.work.keyOf(existing) == key {
				return fmt.Errorf("append %s: %w", name, store.ErrDuplicateKey)
			}
		}
	}
	l.record("append", name)
	h.work.rows = append(h.work.rows, row)
	return nil
}

func (l *Library) Close(_ context.Context, name string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	h, ok := l.open[name]
	if !ok {
		return fmt.Errorf("close %s: %w", name, store.ErrNotOpen)
	}
	delete(l.open, name)
	if h.mode == store.OpenWrite {
		l.record("close", name)
		l.s.libs[l.name][name] = h.work
	}
	return nil
}

func (l *Library) End(_ context.Context, name string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if _, ok := l.open[name]; !ok {
		return fmt.Errorf("end %s: %w", name, store.ErrNotOpen)
	}
	delete(l.open, name)
	return nil
}

func (l *Library) Release() error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.open = make(map[string]*handle)
	l.released = true
	return nil
}
