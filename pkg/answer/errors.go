package answer

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/answerline/pkg/assemble"
	"github.com/papercomputeco/answerline/pkg/chatstore"
	"github.com/papercomputeco/answerline/pkg/registry"
)

// UpstreamError reports a failed provider call: non-2xx status, a
// malformed body, or an empty answer. Always fatal.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream provider error (status %d): %s", e.Status, e.Message)
	}
	return "upstream provider error: " + e.Message
}

// Stable error codes surfaced to API callers.
const (
	CodeValidation           = 1001
	CodeProviderNotFound     = 3001
	CodeProfileNotFound      = 3003
	CodeConversationNotFound = 4001
	CodeAttachmentNotFound   = 4003
	CodeAttachmentNotReady   = 4004
	CodeInternal             = 5000
	CodeUpstream             = 5001
	CodeEndpointNotFound     = 6002
)

// ErrorCode maps an error from the request pipeline onto its stable code.
func ErrorCode(err error) int {
	var storeNotFound chatstore.NotFoundError
	if errors.As(err, &storeNotFound) {
		switch storeNotFound.Kind {
		case "conversation":
			return CodeConversationNotFound
		case "attachment":
			return CodeAttachmentNotFound
		}
		return CodeInternal
	}

	var notReady chatstore.NotReadyError
	if errors.As(err, &notReady) {
		return CodeAttachmentNotReady
	}

	var regNotFound registry.NotFoundError
	if errors.As(err, &regNotFound) {
		switch regNotFound.Kind {
		case "provider":
			return CodeProviderNotFound
		case "profile":
			return CodeProfileNotFound
		case "endpoint":
			return CodeEndpointNotFound
		}
		return CodeInternal
	}

	var validation assemble.ValidationError
	if errors.As(err, &validation) {
		return CodeValidation
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return CodeUpstream
	}

	return CodeInternal
}
