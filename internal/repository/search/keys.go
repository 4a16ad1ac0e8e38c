package search

import "strings"

// DefaultKeyPrefix namespaces every hash and index the adapter creates.
const DefaultKeyPrefix = "zelastic:"

// DocKey builds the composite document identity of a record.
func DocKey(prefix, container, id string) string {
	return prefix + container + ":" + id
}

// ParseDocKey recovers the container and record id from a composite document identity.
// Container names never contain the separator, so the first one after the prefix splits the key.
func ParseDocKey(prefix, key string) (container, id string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return "", "", false
	}
	container, id, found = strings.Cut(rest, ":")
	if !found || container == "" || id == "" {
		return "", "", false
	}
	return container, id, true
}

// IndexName returns the FT index serving a container.
func IndexName(prefix, container string) string {
	return prefix + container + ":idx"
}

func docPrefix(prefix, container string) string {
	return prefix + container + ":"
}
