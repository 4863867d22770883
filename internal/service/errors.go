package service

import "errors"

// Error kinds returned by the dictation core. Callers classify with errors.Is.
var (
	// ErrConfiguration: no resource is configured for a language/grade pair
	ErrConfiguration = errors.New("configuration error")
	// ErrFetch: the item resource could not be retrieved
	ErrFetch = errors.New("fetch error")
	// ErrFormat: the payload does not contain an item list
	ErrFormat = errors.New("format error")
	// ErrValidation: bad input such as an empty child name or empty pool
	ErrValidation = errors.New("validation error")
	// ErrInvalidState: the operation is not allowed in the current session state
	ErrInvalidState = errors.New("invalid state")
	// ErrStaleLoad: a newer pool load was issued before this one finished
	ErrStaleLoad = errors.New("stale pool load")
)
