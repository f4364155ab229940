package board

import "errors"

// ErrInvalidRequest is returned for requests with malformed fields that are
// not scalars, such as the question id.
var ErrInvalidRequest = errors.New("invalid request")
