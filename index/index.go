// Package index builds and queries the in-memory search index over
// option records. Four derived structures are constructed in one pass
// over the records: a name index (every dotted prefix to the full
// names sharing it), a prefix index (proper prefixes to descendant
// names), an inverted word index, and a hierarchical parent/child
// index. The derived structures are what the disk cache persists as
// the binary payload.
package index

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/optsearch"
)

// PathKey addresses one edge of the option hierarchy: the names that
// have Child as their next segment directly under Parent. The root has
// Parent "".
type PathKey struct {
	Parent string
	Child  string
}

// minWordLen is the shortest token indexed by the inverted word index.
const minWordLen = 3

var wordRe = regexp.MustCompile(`\w+`)

// Index holds the primary options map and its four derived mappings.
// The only states are empty and built: a rebuild constructs everything
// off to the side and swaps it in under the lock in a single step, so
// no reader ever observes a half-rebuilt index.
type Index struct {
	mu      sync.RWMutex
	built   bool
	builtAt time.Time

	options  map[string]*optsearch.Option
	sorted   []string // option names, ascending
	names    map[string][]string
	prefixes map[string][]string
	words    map[string][]string
	children map[PathKey][]string
}

// New returns an empty index. Queries against it fail with ENOTREADY
// until Build or Restore succeeds, so callers can tell "not loaded
// yet" from "loaded, no matches".
func New() *Index {
	return &Index{}
}

// Build replaces the index contents with the given records. Records
// with invalid names are skipped; nested sub-options are flattened and
// indexed alongside their parents. Duplicate names resolve to the last
// record seen.
func (ix *Index) Build(records []*optsearch.Option) {
	b := newBuilder()
	for _, rec := range records {
		b.add(rec)
	}
	b.finalize()

	ix.mu.Lock()
	ix.options = b.options
	ix.sorted = b.sorted
	ix.names = b.names
	ix.prefixes = b.prefixes
	ix.words = b.words
	ix.children = b.children
	ix.built = true
	ix.builtAt = time.Now()
	ix.mu.Unlock()
}

// Built reports whether the index holds a queryable dataset.
func (ix *Index) Built() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// BuiltAt returns when the current dataset was built or restored.
func (ix *Index) BuiltAt() time.Time {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.builtAt
}

// Count returns the number of indexed options.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.options)
}

// WordCount returns the size of the inverted word index.
func (ix *Index) WordCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.words)
}

// PrefixCount returns the size of the prefix index.
func (ix *Index) PrefixCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.prefixes)
}

// Lookup retrieves an option by its exact name.
func (ix *Index) Lookup(name string) (*optsearch.Option, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, optsearch.Errorf(optsearch.ENOTREADY, "index not built")
	}
	opt, ok := ix.options[name]
	if !ok {
		return nil, optsearch.Errorf(optsearch.ENOTFOUND, "option %q not found", name)
	}
	return opt, nil
}

// Suggest returns up to limit names close to the given name: first
// completions of the name itself, then siblings under its parent path.
func (ix *Index) Suggest(name string, limit int) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, optsearch.Errorf(optsearch.ENOTREADY, "index not built")
	}
	if limit <= 0 {
		limit = 5
	}

	suggestions := ix.namesWithPrefix(name, limit)
	if len(suggestions) < limit {
		if parent := optsearch.ParentPath(name); parent != "" {
			for _, sibling := range ix.namesWithPrefix(parent+".", limit) {
				if sibling == name || contains(suggestions, sibling) {
					continue
				}
				suggestions = append(suggestions, sibling)
				if len(suggestions) == limit {
					break
				}
			}
		}
	}
	return suggestions, nil
}

// ListPrefix returns all options at or below the dotted prefix,
// ordered by name. An empty prefix lists every option.
func (ix *Index) ListPrefix(prefix string) ([]*optsearch.Option, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, optsearch.Errorf(optsearch.ENOTREADY, "index not built")
	}

	var names []string
	switch {
	case prefix == "":
		names = ix.sorted
	default:
		names = ix.names[prefix]
	}

	opts := make([]*optsearch.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, ix.options[name])
	}
	return opts, nil
}

// ChildSegments returns the distinct next-level segments under the
// given parent path, for one-level-at-a-time path completion.
func (ix *Index) ChildSegments(parent string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil, optsearch.Errorf(optsearch.ENOTREADY, "index not built")
	}

	var segments []string
	for key := range ix.children {
		if key.Parent == parent {
			segments = append(segments, key.Child)
		}
	}
	sort.Strings(segments)
	return segments, nil
}

// namesWithPrefix scans the sorted name list for names beginning with
// prefix. Callers must hold the read lock.
func (ix *Index) namesWithPrefix(prefix string, limit int) []string {
	start := sort.SearchStrings(ix.sorted, prefix)
	var out []string
	for i := start; i < len(ix.sorted) && len(out) < limit; i++ {
		if !strings.HasPrefix(ix.sorted[i], prefix) {
			break
		}
		out = append(out, ix.sorted[i])
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// builder accumulates the derived structures as sets, then finalizes
// them into sorted slices.
type builder struct {
	options  map[string]*optsearch.Option
	sorted   []string
	names    map[string][]string
	prefixes map[string][]string
	words    map[string][]string
	children map[PathKey][]string

	nameSets   map[string]map[string]struct{}
	prefixSets map[string]map[string]struct{}
	wordSets   map[string]map[string]struct{}
	childSets  map[PathKey]map[string]struct{}
}

func newBuilder() *builder {
	return &builder{
		options:    make(map[string]*optsearch.Option),
		nameSets:   make(map[string]map[string]struct{}),
		prefixSets: make(map[string]map[string]struct{}),
		wordSets:   make(map[string]map[string]struct{}),
		childSets:  make(map[PathKey]map[string]struct{}),
	}
}

func (b *builder) add(rec *optsearch.Option) {
	if rec == nil || rec.Validate() != nil {
		return
	}
	b.options[rec.Name] = rec

	segments := rec.PathSegments()

	// Every dotted prefix of the name, the full name included, maps to
	// the name; proper prefixes additionally feed the prefix index.
	for i := 1; i <= len(segments); i++ {
		prefix := strings.Join(segments[:i], ".")
		addToSet(b.nameSets, prefix, rec.Name)
		if i < len(segments) {
			addToSet(b.prefixSets, prefix, rec.Name)
		}
	}

	// Lowercase word tokens from the name and description.
	for _, tok := range tokenize(rec.Name + " " + rec.Description) {
		if len(tok) < minWordLen {
			continue
		}
		addToSet(b.wordSets, tok, rec.Name)
	}

	// Adjacent (parent, child) pairs along the path, root included.
	parent := ""
	for i, seg := range segments {
		addToSet(b.childSets, PathKey{Parent: parent, Child: seg}, rec.Name)
		if i == 0 {
			parent = seg
		} else {
			parent = parent + "." + seg
		}
	}

	for _, sub := range rec.SubOptions {
		b.add(sub)
	}
}

func (b *builder) finalize() {
	b.sorted = make([]string, 0, len(b.options))
	for name := range b.options {
		b.sorted = append(b.sorted, name)
	}
	sort.Strings(b.sorted)

	b.names = collapse(b.nameSets)
	b.prefixes = collapse(b.prefixSets)
	b.words = collapse(b.wordSets)
	b.children = collapsePath(b.childSets)
}

func addToSet[K comparable](sets map[K]map[string]struct{}, key K, name string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]struct{})
		sets[key] = set
	}
	set[name] = struct{}{}
}

func collapse(sets map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(sets))
	for key, set := range sets {
		out[key] = sortedKeys(set)
	}
	return out
}

func collapsePath(sets map[PathKey]map[string]struct{}) map[PathKey][]string {
	out := make(map[PathKey][]string, len(sets))
	for key, set := range sets {
		out[key] = sortedKeys(set)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}
