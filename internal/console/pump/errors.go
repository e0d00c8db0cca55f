package pump

import "errors"

// ErrClosed is returned when writing to a closed pump.
var ErrClosed = errors.New("output pump is closed")
