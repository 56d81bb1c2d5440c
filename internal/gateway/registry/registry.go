// Package registry holds the static endpoint table: one descriptor per
// upstream operation, keyed by "category.action". The table is compiled in,
// built once at startup, and immutable afterwards.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/relaygate/relaygate/internal/domain"
)

// EndpointDescriptor is the upstream call metadata for one operation key.
type EndpointDescriptor struct {
	// Key identifies the operation, e.g. "message.sendText".
	Key string

	// PathTemplate is the upstream path with an {instance} placeholder and
	// optional {param} placeholders filled from the request's path params.
	PathTemplate string

	// Method is the upstream HTTP method.
	Method string

	// QuotaType names the usage pool this operation draws from.
	QuotaType domain.QuotaType

	// QuotaWeight is the cost of one call against the quota pool. Always >= 1.
	QuotaWeight int64

	// RequiresInstance marks operations that act on a tenant-owned instance.
	RequiresInstance bool

	// Cacheable marks read-only operations whose responses may be served
	// from the response cache for CacheTTL.
	Cacheable bool
	CacheTTL  time.Duration
}

// ReadOnly reports whether the descriptor's method is safe to cache. The
// dispatcher re-checks this so a misconfigured descriptor can never cache a
// mutating call.
func (d EndpointDescriptor) ReadOnly() bool {
	return d.Method == "GET" || d.Method == "HEAD"
}

// Registry is the immutable lookup table over all endpoint descriptors.
type Registry struct {
	byKey map[string]EndpointDescriptor
}

// New builds the registry from the compiled endpoint table.
func New() *Registry {
	byKey := make(map[string]EndpointDescriptor, len(endpoints))
	for _, d := range endpoints {
		byKey[d.Key] = d
	}
	return &Registry{byKey: byKey}
}

// Lookup returns the descriptor for key, or domain.ErrEndpointNotFound.
func (r *Registry) Lookup(key string) (EndpointDescriptor, error) {
	d, ok := r.byKey[key]
	if !ok {
		return EndpointDescriptor{}, fmt.Errorf("lookup %q: %w", key, domain.ErrEndpointNotFound)
	}
	return d, nil
}

// Keys returns all registered operation keys. Used by the route builder and
// by table-sanity tests.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	return keys
}

// ResolvePath substitutes the provider-side instance identifier and path
// parameters into the descriptor's path template. Pure: identical inputs
// always yield identical paths. Fails when RequiresInstance and instance is
// empty, or when a placeholder remains unresolved.
func ResolvePath(d EndpointDescriptor, instance string, pathParams map[string]string) (string, error) {
	if d.RequiresInstance && instance == "" {
		return "", fmt.Errorf("resolve %q: %w", d.Key, domain.ErrInstanceRequired)
	}

	path := d.PathTemplate
	if instance != "" {
		path = strings.ReplaceAll(path, "{instance}", instance)
	}
	for name, value := range pathParams {
		if value == "" {
			continue
		}
		path = strings.ReplaceAll(path, "{"+name+"}", value)
	}

	if i := strings.IndexByte(path, '{'); i >= 0 {
		placeholder := path[i:]
		if end := strings.IndexByte(placeholder, '}'); end >= 0 {
			placeholder = placeholder[:end+1]
		}
		return "", fmt.Errorf("resolve %q: unresolved placeholder %s: %w",
			d.Key, placeholder, domain.ErrInvalidInput)
	}

	return path, nil
}
