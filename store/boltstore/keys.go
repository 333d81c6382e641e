package boltstore

import (
	"encoding/binary"
	"encoding/json"
)

// itob encodes v as a fixed-width, big-endian 8-byte key. Every identifier
// in this store is non-negative, so big-endian fixed-width encoding makes
// key order match numeric order exactly - required for the composite-key
// prefix scans spec §4.3 describes (the teacher's variable-length varint
// encoding doesn't have that property once ids cross a varint length
// boundary, so this store departs from it here; see DESIGN.md).
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// encodeFieldNames and decodeFieldNames store the RefsetFieldNames value as
// plain JSON: it's a small, rarely-read per-refset value, not something
// that needs a compact wire encoding.
func encodeFieldNames(fields []string) ([]byte, error) {
	return json.Marshal(fields)
}

func decodeFieldNames(data []byte, fields *[]string) error {
	return json.Unmarshal(data, fields)
}

// concat builds a composite key by joining the given key segments.
func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	buf := make([]byte, 0, n)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
