package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteData writes one SSE event carrying the JSON encoding of v as its
// data payload, followed by the blank line that terminates the event.
func WriteData(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding SSE payload: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing SSE event: %w", err)
	}
	return nil
}
