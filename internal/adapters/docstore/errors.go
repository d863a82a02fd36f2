package docstore

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrClosed = errors.New("document store closed")
)
