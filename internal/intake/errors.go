package intake

import "errors"

// ErrConfiguration reports a bad root, classification table or pattern.
var ErrConfiguration = errors.New("intake configuration error")
