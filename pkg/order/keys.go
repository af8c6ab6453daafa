package order

import "fmt"

// Pebble key schema
// Design principles:
// 1. Zero-padded numeric IDs for lexicographic range scans in placement order
// 2. A single meta key for the identifier counter, separate from records

// Key prefixes
const (
	prefixOrder = "ord:" // Order records
	keyNextID   = "meta:next_order_id"
)

// orderKey returns the key for an order record
// Format: "ord:{id}" with the ID zero-padded (20 digits) for sorting
// Example: "ord:00000000000000000042"
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// orderPrefix returns the prefix covering all order records
func orderPrefix() []byte {
	return []byte(prefixOrder)
}

// nextIDKey returns the key holding the monotonic identifier counter
func nextIDKey() []byte {
	return []byte(keyNextID)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
