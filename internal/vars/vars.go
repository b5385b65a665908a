// Package vars supplies name/value pairs that models can read as
// environment settings.
package vars

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
)

type Resolver interface {
	Names() []string
	Value(name string) string
}

type mapResolver map[string]string

func FromMap(m map[string]string) Resolver {
	r := make(mapResolver, len(m))
	for k, v := range m {
		r[k] = v
	}
	return r
}

// FromEnviron parses KEY=VALUE pairs as returned by os.Environ.
func FromEnviron(environ []string) Resolver {
	r := make(mapResolver, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			r[k] = v
		}
	}
	return r
}

func (m mapResolver) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m mapResolver) Value(name string) string { return m[name] }

// Resolve returns every variable of r, with file: URIs converted to local
// paths. A nil resolver yields nil.
func Resolve(r Resolver) map[string]string {
	if r == nil {
		return nil
	}
	out := make(map[string]string)
	for _, name := range r.Names() {
		out[name] = Normalize(r.Value(name))
	}
	return out
}

// Normalize converts a file: URI to a filesystem path. Other values are
// returned unchanged, as are URIs that fail to parse.
func Normalize(value string) string {
	if !strings.HasPrefix(strings.ToLower(value), "file:") {
		return value
	}
	u, err := url.Parse(strings.ReplaceAll(value, " ", "%20"))
	if err != nil {
		return value
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}
	if p == "" {
		return value
	}
	return filepath.FromSlash(p)
}
