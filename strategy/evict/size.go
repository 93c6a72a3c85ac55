package evict

import "github.com/vmihailenco/msgpack/v5"

// entryOverhead approximates the fixed per-entry bookkeeping cost: map slot,
// entry struct, context record. Counted on top of the value payload so that
// thousands of tiny values still register as memory pressure.
const entryOverhead = 96

// unencodableSize is charged when msgpack cannot encode the value
// (channels, funcs). A flat guess keeps accounting monotonic instead of
// treating such values as free.
const unencodableSize = 512

// EstimateSize is the default SizeOf: strings and byte slices are counted
// directly; everything else is charged its msgpack-encoded length. The
// result is an approximation of resident footprint, not an exact byte
// count — thresholds should be sized with headroom.
func EstimateSize[V any](v V) int64 {
	switch x := any(v).(type) {
	case nil:
		return entryOverhead
	case string:
		return int64(len(x)) + entryOverhead
	case []byte:
		return int64(len(x)) + entryOverhead
	}
	b, err := msgpack.Marshal(v)
	if err != nil {
		return unencodableSize + entryOverhead
	}
	return int64(len(b)) + entryOverhead
}
