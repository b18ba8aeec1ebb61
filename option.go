package optsearch

import "strings"

// Option represents a single configuration option parsed from a
// documentation manual. The Name is a dot-separated hierarchical path
// (e.g. "services.nginx.enable") and serves as the option's identity
// within the index that owns it. Options are immutable once indexed;
// changes happen only through a full index rebuild.
type Option struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Example     string `json:"example,omitempty"`
	DeclaredBy  string `json:"declaredBy,omitempty"`
	Parent      string `json:"parent,omitempty"`

	// SubOptions holds nested options keyed by their full name, for
	// record types whose children are declared inline in the manual.
	SubOptions map[string]*Option `json:"subOptions,omitempty"`
}

// Validate returns an error if the option contains invalid fields.
func (o *Option) Validate() error {
	if o.Name == "" {
		return Errorf(EINVALID, "option name required")
	}
	if strings.HasPrefix(o.Name, ".") || strings.HasSuffix(o.Name, ".") {
		return Errorf(EINVALID, "option name %q must not begin or end with a dot", o.Name)
	}
	return nil
}

// PathSegments returns the dot-separated segments of the option name.
func (o *Option) PathSegments() []string {
	return strings.Split(o.Name, ".")
}

// ParentPath returns the path one level above the option name, or ""
// for top-level options.
func ParentPath(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

// SearchResult pairs an option with the score assigned by the search
// strategy that ranked it highest.
type SearchResult struct {
	Option *Option `json:"option"`
	Score  int     `json:"score"`
}
