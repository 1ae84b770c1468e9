package recycler

import "errors"

// ErrDoubleRecycle is returned by Handle.Recycle when the handle has already
// been recycled (or discarded) once. Recycling a handle twice is a caller
// bug: it would hand the same object out from two concurrent Acquire calls.
var ErrDoubleRecycle = errors.New("recycler: handle already recycled")

// ErrInconsistentHandle is returned by Pool.Acquire when a handle taken from
// the owner stack or a foreign queue has mismatched recycle ids, i.e. its
// internal bookkeeping has been corrupted.
var ErrInconsistentHandle = errors.New("recycler: handle does not belong to this pool")
