// Package proxy is the client-facing edge of the gateway: request parsing,
// error mapping and response writing for the OpenAI-compatible API.
//
// # Architecture
//
//   - types: OpenAI-compatible request/response data structures
//   - handlers: chat completions, models and health endpoints
//   - middleware: CORS, request ID, logging, recovery and the optional token check
//
// This package holds the helpers shared by handlers:
//
//   - ParseChatCompletionRequest: size-limited JSON decoding plus shape validation
//   - ConversationMessages: content (string or parts) reduced to text for the translator
//   - HandleError: the single mapping from gateway errors to the error envelope
//   - WriteJSONResponse, WriteSSEChunk, WriteSSEDone: response writers
//
// # Request Flow
//
//  1. Client sends an OpenAI-compatible request to /v1/chat/completions
//  2. Middleware chain runs (CORS → request ID → logging → recovery → auth)
//  3. Handler parses and validates the body
//  4. The translator builds the backend conversation
//  5. The backend session solves the challenge and opens the event feed
//  6. The stream multiplexer relays events as SSE chunks, or collects them
//     into one completion
//
// # Error Handling
//
// All errors use the OpenAI envelope. The type is the failure class:
//
//	{
//	  "error": {
//	    "message": "The backend rejected the request.",
//	    "type": "BackendRejected",
//	    "code": "backend_error"
//	  }
//	}
//
// | type                     | status |
// |--------------------------|--------|
// | MalformedRequest         | 400    |
// | ChallengeUnsolvable      | 502    |
// | BackendRejected          | 502    |
// | BackendTimeout           | 504    |
// | StreamTruncated          | 502    |
// | InternalTranslationError | 500    |
//
// Once a stream is committed, failures can no longer change the status; the
// stream ends with a stop chunk and [DONE] instead.
package proxy
