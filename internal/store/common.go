package store

import "encoding/binary"

const (
	ErrFailedBatchCommit = "failed to commit batch: %v"
)

// Prefix constants for all store types
const (
	prefixTraceWindow byte = iota + 1
	prefixCoreCounters
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixTraceWindow:
		return "traceWindow"
	case prefixCoreCounters:
		return "coreCounters"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a sequence of big-endian ids, so
// keys of one prefix sort by (ids...)
func makeKey(prefix byte, ids ...uint32) []byte {
	key := make([]byte, 1, 1+4*len(ids))
	key[0] = prefix
	for _, id := range ids {
		key = binary.BigEndian.AppendUint32(key, id)
	}
	return key
}
