package engine

import "github.com/rotisserie/eris"

// Client-input errors. Callers test with eris.Is / errors.Is.
var (
	// ErrMissingSelector means a required selector (factory id, period) was absent.
	ErrMissingSelector = eris.New("missing required selector")
	// ErrOutOfScope means the request names a factory the caller cannot see.
	ErrOutOfScope = eris.New("factory outside access scope")
	// ErrInvalidInput means a selector or submitted value is malformed.
	ErrInvalidInput = eris.New("invalid input")
)
