package registry

import (
	"errors"
	"fmt"
)

// ErrProviderDisabled is returned when a profile's provider exists but
// is switched off. Recoverable: the orchestrator answers via fallback.
var ErrProviderDisabled = errors.New("model provider is disabled")

// ErrDuplicateName is returned when a provider or profile name collides.
var ErrDuplicateName = errors.New("name already exists")

// NotFoundError is returned when a provider, model, profile, or tool
// endpoint doesn't exist.
type NotFoundError struct {
	Kind string // "provider", "model", "profile", "endpoint"
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
