package domain

// Primary store layout: three disjoint namespaces, so no container name can
// collide with bookkeeping entries.
//
//	c\x00{container}\x00         container metadata
//	r\x00{container}\x00{id}   record
//	s\x00{container}\x00{field} index type tag
const (
	nsContainer = "c\x00"
	nsRecord    = "r\x00"
	nsSchema    = "s\x00"
	sep         = "\x00"
)

// ContainersPrefix is the prefix of every container metadata key.
func ContainersPrefix() []byte { return []byte(nsContainer) }

// ContainerKey is the metadata key of a container. The trailing separator makes
// the key usable as an exact prefix.
func ContainerKey(name string) []byte { return []byte(nsContainer + name + sep) }

// ContainerName recovers the container name from a key listed under ContainersPrefix.
func ContainerName(suffix []byte) string {
	if n := len(suffix); n > 0 && suffix[n-1] == sep[0] {
		return string(suffix[:n-1])
	}
	return string(suffix)
}

// RecordPrefix is the prefix of every record key of a container.
func RecordPrefix(container string) []byte { return []byte(nsRecord + container + sep) }

// RecordKey is the primary key of a record.
func RecordKey(container, id string) []byte { return []byte(nsRecord + container + sep + id) }

// SchemaPrefix is the prefix of every index definition key of a container.
func SchemaPrefix(container string) []byte { return []byte(nsSchema + container + sep) }

// SchemaKey is the key of a single index definition.
func SchemaKey(container, field string) []byte {
	return []byte(nsSchema + container + sep + field)
}
