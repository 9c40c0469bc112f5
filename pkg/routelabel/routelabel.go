// Package routelabel resolves the endpoint label reported for a request.
// It decides whether a route is ignored entirely, picks the label (exact
// path, matched route template, or a fallback of the caller's choosing) and
// applies group-pattern rewrites that report several route templates under
// one shared label.
package routelabel

import (
	"net/http"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LabelMode selects how the endpoint label is derived.
type LabelMode int

const (
	// ModeTemplate reports the route template the request matched (the
	// http.ServeMux pattern), falling back to the exact path when no
	// template is available.
	ModeTemplate LabelMode = iota
	// ModeExact always reports the exact requested path.
	ModeExact
)

type group struct {
	label    string
	patterns []string
}

// Resolver maps requests to endpoint labels. The zero value reports route
// templates with exact-path fallback, ignores nothing and groups nothing.
type Resolver struct {
	mode     LabelMode
	ignore   []string
	groups   []group
	fallback func(path string) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIgnorePatterns skips reporting for requests matching any of the
// patterns. Patterns are matched against both the exact path and the route
// template, support doublestar globs, and are checked before any other
// rule.
func WithIgnorePatterns(patterns ...string) Option {
	return func(r *Resolver) {
		r.ignore = append(r.ignore, patterns...)
	}
}

// WithGroupPatterns reports every route matching one of the patterns under
// the given label. The choice of label is arbitrary.
func WithGroupPatterns(label string, patterns ...string) Option {
	return func(r *Resolver) {
		r.groups = append(r.groups, group{label: label, patterns: patterns})
	}
}

// WithLabelMode sets how the endpoint label is derived.
func WithLabelMode(mode LabelMode) Option {
	return func(r *Resolver) {
		r.mode = mode
	}
}

// WithFallback sets the function deriving the label from the exact path
// when no route template is available. It only applies to ModeTemplate.
func WithFallback(fn func(path string) string) Option {
	return func(r *Resolver) {
		r.fallback = fn
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the endpoint label for the request, or ignored=true when
// the route must not be reported at all.
func (r *Resolver) Resolve(req *http.Request) (label string, ignored bool) {
	path := req.URL.Path
	template := routeTemplate(req)

	for _, pattern := range r.ignore {
		if matches(pattern, path) || (template != "" && matches(pattern, template)) {
			return "", true
		}
	}

	switch {
	case r.mode == ModeExact:
		label = path
	case template != "":
		label = template
	case r.fallback != nil:
		label = r.fallback(path)
	default:
		label = path
	}

	for _, g := range r.groups {
		for _, pattern := range g.patterns {
			if matches(pattern, label) || matches(pattern, path) {
				return g.label, false
			}
		}
	}
	return label, false
}

// matches treats the pattern as a literal first so that route templates
// like /foo/{bar}, whose braces would otherwise be glob alternations, can
// be grouped by naming them verbatim.
func matches(pattern, s string) bool {
	if pattern == s {
		return true
	}
	ok, err := doublestar.Match(pattern, s)
	return err == nil && ok
}

// routeTemplate extracts the matched http.ServeMux pattern, stripped of its
// method and host prefix, e.g. "GET example.com/foo/{bar}" -> "/foo/{bar}".
func routeTemplate(req *http.Request) string {
	pattern := req.Pattern
	if pattern == "" {
		return ""
	}
	if method, rest, ok := strings.Cut(pattern, " "); ok && method != "" {
		pattern = rest
	}
	if i := strings.Index(pattern, "/"); i > 0 {
		pattern = pattern[i:]
	}
	return pattern
}
