package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"github.com/fwojciec/optsearch"
)

// DerivedVersion tags the binary payload format. A mismatch on decode
// is treated as a cache miss by the caller, never as a crash.
const DerivedVersion = 1

// Dataset is the structured cache payload: the primary options map
// plus the counts and timestamp used to validate a cached copy before
// adopting it.
type Dataset struct {
	Count   int                          `json:"count"`
	BuiltAt time.Time                    `json:"builtAt"`
	Options map[string]*optsearch.Option `json:"options"`
}

// Derived is the binary cache payload: the four derived mappings,
// which are expensive to rebuild and meaningless without the dataset
// they were derived from.
type Derived struct {
	Version  int
	Names    map[string][]string
	Prefixes map[string][]string
	Words    map[string][]string
	Children map[PathKey][]string
}

// Snapshot pairs a dataset with its derived structures. It is the unit
// stored in the memory cache and reassembled from the two disk cache
// payloads.
type Snapshot struct {
	Dataset *Dataset
	Derived *Derived
}

// Snapshot captures the index contents for persistence. The returned
// structures are shared, not copied: the index never mutates a built
// generation, so sharing is safe.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.built {
		return nil
	}
	return &Snapshot{
		Dataset: &Dataset{
			Count:   len(ix.options),
			BuiltAt: ix.builtAt,
			Options: ix.options,
		},
		Derived: &Derived{
			Version:  DerivedVersion,
			Names:    ix.names,
			Prefixes: ix.prefixes,
			Words:    ix.words,
			Children: ix.children,
		},
	}
}

// Restore validates a snapshot and swaps it in as the live index
// contents. An invalid snapshot leaves the index untouched.
func (ix *Index) Restore(s *Snapshot, minOptions int) error {
	if err := s.Validate(minOptions); err != nil {
		return err
	}

	sorted := make([]string, 0, len(s.Dataset.Options))
	for name := range s.Dataset.Options {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	ix.mu.Lock()
	ix.options = s.Dataset.Options
	ix.sorted = sorted
	ix.names = s.Derived.Names
	ix.prefixes = s.Derived.Prefixes
	ix.words = s.Derived.Words
	ix.children = s.Derived.Children
	ix.built = true
	ix.builtAt = s.Dataset.BuiltAt
	ix.mu.Unlock()
	return nil
}

// Validate checks a snapshot for integrity before it is served:
// a non-trivial option count, all derived mappings non-empty, and
// every name referenced by a derived mapping present in the primary
// options map. Suspiciously small or inconsistent cached data is
// rejected rather than served.
func (s *Snapshot) Validate(minOptions int) error {
	if s == nil || s.Dataset == nil || s.Derived == nil {
		return optsearch.Errorf(optsearch.EINVALID, "incomplete index snapshot")
	}
	if s.Derived.Version != DerivedVersion {
		return optsearch.Errorf(optsearch.EINVALID, "index snapshot version %d, want %d", s.Derived.Version, DerivedVersion)
	}
	if len(s.Dataset.Options) != s.Dataset.Count {
		return optsearch.Errorf(optsearch.EINVALID, "index snapshot count mismatch: %d options, count %d", len(s.Dataset.Options), s.Dataset.Count)
	}
	if minOptions > 0 && len(s.Dataset.Options) < minOptions {
		return optsearch.Errorf(optsearch.EINVALID, "index snapshot too small: %d options, want at least %d", len(s.Dataset.Options), minOptions)
	}
	if len(s.Derived.Names) == 0 || len(s.Derived.Words) == 0 || len(s.Derived.Children) == 0 {
		return optsearch.Errorf(optsearch.EINVALID, "index snapshot missing derived mappings")
	}
	for _, names := range [...]map[string][]string{s.Derived.Names, s.Derived.Prefixes, s.Derived.Words} {
		for _, ns := range names {
			for _, n := range ns {
				if _, ok := s.Dataset.Options[n]; !ok {
					return optsearch.Errorf(optsearch.EINVALID, "index snapshot references unknown option %q", n)
				}
			}
		}
	}
	for _, ns := range s.Derived.Children {
		for _, n := range ns {
			if _, ok := s.Dataset.Options[n]; !ok {
				return optsearch.Errorf(optsearch.EINVALID, "index snapshot references unknown option %q", n)
			}
		}
	}
	return nil
}

// EncodeDerived serializes the derived mappings for the binary cache
// payload.
func EncodeDerived(d *Derived) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, fmt.Errorf("encode derived indexes: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDerived deserializes a binary cache payload.
func DecodeDerived(data []byte) (*Derived, error) {
	var d Derived
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode derived indexes: %w", err)
	}
	return &d, nil
}
