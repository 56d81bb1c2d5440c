package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Signature derives the deterministic cache key for a request from its
// semantically relevant fields. The tenant is always part of the key:
// instance names are tenant-scoped, so a signature without the tenant would
// let one tenant read another's cached payloads. Query parameters are sorted
// and JSON bodies are re-marshalled so that key order and whitespace do not
// fragment the cache.
func Signature(tenantID, endpointKey, instanceName string, query url.Values, body json.RawMessage) string {
	var b strings.Builder
	b.WriteString(tenantID)
	b.WriteByte('\n')
	b.WriteString(endpointKey)
	b.WriteByte('\n')
	b.WriteString(instanceName)
	b.WriteByte('\n')
	b.WriteString(canonicalQuery(query))
	b.WriteByte('\n')
	b.Write(canonicalBody(body))

	sum := sha256.Sum256([]byte(b.String()))
	return "cache:" + hex.EncodeToString(sum[:])
}

// canonicalQuery renders query params in sorted key order, values sorted
// within a key.
func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('&')
		}
	}
	return b.String()
}

// canonicalBody re-marshals a JSON body so map key order is irrelevant.
// Non-JSON bodies are hashed as-is.
func canonicalBody(body json.RawMessage) []byte {
	if len(body) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return body
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return body
	}
	return canonical
}
