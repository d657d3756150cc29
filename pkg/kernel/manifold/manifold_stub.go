//go:build !manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library. When the "manifold" build tag is not set, this stub
// package is compiled instead, returning an error from New().
//
// Build with: go build -tags=manifold
package manifold

import "github.com/chazu/quadsplit/pkg/kernel"

// Available reports whether the Manifold library was compiled in.
const Available = false

// New returns ErrUnavailable. Build with -tags=manifold to enable.
func New(segments int) (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
