package copc

import "fmt"

// FormatError means the data is not a COPC-shaped file: a missing or
// malformed header, info VLR, or hierarchy page. Fatal at open.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string { return "invalid copc format: " + e.Err.Error() }

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error { return e.Err }

// IoError is a failed or short byte-range read or write. Fatal for the root
// hierarchy page, otherwise scoped to the branch or node being resolved.
type IoError struct {
	Offset uint64
	Length uint64
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error on range [%d, %d): %s", e.Offset, e.Offset+e.Length, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IoError) Unwrap() error { return e.Err }

// DecodeError means the codec rejected a chunk's bytes. Scoped to one node.
type DecodeError struct {
	Key VoxelKey
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding chunk for node %s: %s", e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError is a sink failure during build or finalize. Always fatal; no
// partial COPC file is valid.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "copc write failed: " + e.Err.Error() }

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error { return e.Err }

// NodeError attaches a fetch or decode failure to the node it occurred on.
// A point iterator surfaces it through Err; the caller decides whether to
// skip the node or abort.
type NodeError struct {
	Entry Entry
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s unreadable: %s", e.Entry.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *NodeError) Unwrap() error { return e.Err }
