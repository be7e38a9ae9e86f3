// Package bridge models the inbound REST request and routes it to a
// resource kind.
package bridge

import (
	"strings"
)

// Request is the normalized form a translator receives: everything it needs
// from the HTTP layer, nothing transport-specific.
type Request struct {
	Method string
	// Path is the URL path with any trailing :action already removed.
	Path string
	// Action is the :action suffix of the final path segment, empty when
	// none was given.
	Action string
	Query  map[string]string
	// Body is the decoded JSON object, nil for bodyless requests.
	Body map[string]any
}

// SplitAction separates a trailing :action suffix from the path. Only a
// colon inside the final segment counts, so colons embedded in earlier
// segments stay intact.
func SplitAction(path string) (string, string) {
	i := strings.LastIndex(path, ":")
	if i < 0 || i < strings.LastIndex(path, "/") {
		return path, ""
	}
	return path[:i], path[i+1:]
}

// PathSegments splits the path into its non-empty segments.
func PathSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// QueryFlag reports whether a query parameter was supplied with a true
// value.
func (r *Request) QueryFlag(name string) bool {
	v, ok := r.Query[name]
	return ok && strings.EqualFold(v, "true")
}

// QueryValue returns the parameter value and whether it was present.
func (r *Request) QueryValue(name string) (string, bool) {
	v, ok := r.Query[name]
	return v, ok
}
