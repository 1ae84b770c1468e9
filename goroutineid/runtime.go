package goroutineid

import "runtime"

// runtimeStack wraps runtime.Stack(buf, false), isolated in its own file so
// the parsing logic in goroutineid.go can be exercised with synthetic
// headers in tests without spinning up real goroutines.
func runtimeStack(buf []byte) int {
	return runtime.Stack(buf, false)
}
