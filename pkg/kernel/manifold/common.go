package manifold

import "errors"

// DefaultSegments is the number of facets around spheres and cylinders.
const DefaultSegments = 32

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")
