// Package asseturl rewrites stored asset URLs onto the current public asset base.
package asseturl

import "strings"

const mount = "/uploads/"

// Resolver maps stored URLs to externally reachable ones.
type Resolver struct {
	base     string
	isObject func(url string) bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// KeepObjectURLs leaves every URL that isObject claims untouched, even when
// its path contains /uploads/.
func KeepObjectURLs(isObject func(url string) bool) Option {
	return func(r *Resolver) {
		r.isObject = isObject
	}
}

// New returns a Resolver for the given asset base, e.g. "https://photos.example.com".
func New(base string, opts ...Option) *Resolver {
	r := &Resolver{base: strings.TrimRight(base, "/")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Base returns the configured asset base without a trailing slash.
func (r *Resolver) Base() string {
	return r.base
}

// AssetURL joins the asset base and a relative path.
func (r *Resolver) AssetURL(path string) string {
	return r.base + "/" + strings.TrimLeft(path, "/")
}

// Normalize rewrites a filesystem URL (one containing /uploads/) onto the
// asset base, keeping everything after /uploads/ byte for byte. Any other URL,
// including object-store URLs, is returned unchanged.
func (r *Resolver) Normalize(url string) string {
	if r.isObject != nil && r.isObject(url) {
		return url
	}
	i := strings.Index(url, mount)
	if i < 0 {
		return url
	}
	return r.base + url[i:]
}

// NormalizeAll applies Normalize to every non-nil pointer.
func (r *Resolver) NormalizeAll(urls ...*string) {
	for _, u := range urls {
		if u != nil {
			*u = r.Normalize(*u)
		}
	}
}
