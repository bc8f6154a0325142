package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ferryhq/ferry/pkg/proxy/types"
)

// sseDone terminates every event stream.
const sseDone = "data: [DONE]\n\n"

// WriteJSONResponse writes data as a JSON body with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error envelope with the status derived from
// its type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSSEHeaders sets the headers of an event-stream response. They must be
// set before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// WriteSSEChunk writes one chunk as
//
//	data: {"id":"chatcmpl-...","object":"chat.completion.chunk",...}
//
// followed by a blank line, and flushes it to the client.
func WriteSSEChunk(w http.ResponseWriter, chunk *types.ChatCompletionChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	return flush(w)
}

// WriteSSEDone writes the [DONE] marker and flushes it.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, sseDone); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}

	return flush(w)
}

// flush pushes buffered bytes to the client. Writers that cannot flush are
// tolerated; the bytes still go out when the handler returns.
func flush(w http.ResponseWriter) error {
	err := http.NewResponseController(w).Flush()
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}
