// Package glossary loads glossary terms from YAML files and resolves the term
// ids referenced by glossary placeholders.
package glossary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alnah/go-trustedmarkup/internal/yamlutil"
)

// Sentinel errors for glossary operations.
var (
	ErrTermNotFound = errors.New("glossary term not found")
	ErrInvalidTerm  = errors.New("invalid glossary term")
)

// MaxFileSize bounds a single glossary file.
const MaxFileSize = 4 << 20

// Term is one glossary entry.
type Term struct {
	ID          string   `yaml:"id"`          // "group|term"
	Value       string   `yaml:"value"`       // Display name
	Explanation string   `yaml:"explanation"` // Markdown
	Encoding    string   `yaml:"encoding"`    // Explanation encoding (default: markdown)
	Tags        []string `yaml:"tags"`
}

// file is the on-disk layout of a glossary file.
type file struct {
	Terms []Term `yaml:"terms"`
}

// Store indexes terms by normalized id. Terms sharing a normalized id are all
// kept, in load order. A Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	terms map[string][]Term
	count int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{terms: make(map[string][]Term)}
}

// NormalizeID maps a term id to its lookup key. Pipes separating a group from
// a term become hyphens, matching placeholder element ids.
func NormalizeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "|", "-")
}

// Add validates and indexes terms.
func (s *Store) Add(terms ...Term) error {
	for i, t := range terms {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: term %d has no id", ErrInvalidTerm, i)
		}
		if strings.TrimSpace(t.Value) == "" {
			return fmt.Errorf("%w: term %q has no value", ErrInvalidTerm, t.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range terms {
		if t.Encoding == "" {
			t.Encoding = "markdown"
		}
		key := NormalizeID(t.ID)
		s.terms[key] = append(s.terms[key], t)
		s.count++
	}
	return nil
}

// LoadFile reads a YAML glossary file into the store.
func (s *Store) LoadFile(path string) error {
	var f file
	if err := yamlutil.DecodeFile(path, &f, yamlutil.Strict(), yamlutil.MaxSize(MaxFileSize)); err != nil {
		return fmt.Errorf("loading glossary %s: %w", path, err)
	}
	if err := s.Add(f.Terms...); err != nil {
		return fmt.Errorf("loading glossary %s: %w", path, err)
	}
	return nil
}

// Load creates a Store from the given files.
func Load(paths ...string) (*Store, error) {
	s := NewStore()
	for _, p := range paths {
		if err := s.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Lookup returns every term whose normalized id matches id, in load order.
func (s *Store) Lookup(ctx context.Context, id string) ([]Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.terms[NormalizeID(id)]
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTermNotFound, id)
	}
	return append([]Term(nil), found...), nil
}

// Len returns the number of terms loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
