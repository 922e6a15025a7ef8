package sonicprint

import "errors"

// ErrStaleDerivation is returned by a load that finished after a newer load
// had already started. Its result is discarded.
var ErrStaleDerivation = errors.New("derivation superseded by a newer load")
