// Package gcwatch is the recycler's unreachability-triggered cleanup
// collaborator. It is a thin wrapper around [runtime.AddCleanup], giving the
// rest of the codebase a single, mockable seam rather than scattering raw
// runtime.AddCleanup calls (and the footguns that come with getting the
// cleanup argument's lifetime wrong) through stack.go.
//
// Contract: Register invokes callback exactly once, sometime strictly after
// referent becomes unreachable. There is no ordering guarantee relative to
// other cleanups, and no timing guarantee beyond "eventually, if at all". It
// must never be relied on for anything but best-effort resource reclamation.
package gcwatch

import "runtime"

// Handle lets a caller cancel a registered cleanup before it fires, e.g.
// when a resource is reclaimed through the normal path first and the
// cleanup would otherwise double-release it.
type Handle struct {
	cancel func()
}

// Cancel stops the cleanup from running, if it hasn't already started.
// Safe to call more than once, and safe to call after the cleanup has
// already fired (it's then a no-op).
func (h Handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Register arranges for callback to run once referent becomes unreachable.
// referent must not be reachable from callback's closure, or it will never
// become unreachable. callback must not be a method value or closure that
// captures referent directly; capture whatever state callback needs instead.
func Register[T any](referent *T, callback func()) Handle {
	cleanup := runtime.AddCleanup(referent, func(struct{}) {
		callback()
	}, struct{}{})
	return Handle{cancel: cleanup.Stop}
}
