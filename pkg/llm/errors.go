package llm

import "errors"

// ErrEmptyAnswer is returned by adapters when a provider reply carries
// no answer content. Callers treat it as an upstream failure.
var ErrEmptyAnswer = errors.New("provider returned an empty answer")
