package optsearch

import "context"

// Source identifies one documentation manual to fetch and index,
// e.g. a release channel of a package ecosystem.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Validate returns an error if the source contains invalid fields.
func (s *Source) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "source name required")
	}
	if s.URL == "" {
		return Errorf(EINVALID, "source URL required")
	}
	return nil
}

// Fetcher retrieves the raw manual document for a URL.
// Implementations hide transport selection, retry logic and rate
// limiting.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// Parser converts a raw manual document into option records.
// Implementations hide the per-source HTML structure heuristics.
type Parser interface {
	Parse(raw string) ([]*Option, error)
}
