package globe

import "errors"

// ErrDestroyed is returned by setters called after Destroy.
var ErrDestroyed = errors.New("globe: destroyed")
