// Package stream copies a backend event feed to the client.
//
// Relay writes Server-Sent Events in strict arrival order, flushing every
// chunk, and always ends a committed stream with a terminal stop chunk and
// the [DONE] marker:
//
//	data: {"choices":[{"delta":{"role":"assistant","content":"Hel"},...}]}
//	data: {"choices":[{"delta":{"content":"lo"},...}]}
//	data: {"choices":[{"delta":{},"finish_reason":"stop"}],...}
//	data: [DONE]
//
// Collect drains the feed for non-streaming requests.
//
// Both close the backend stream on return, so a disconnected client never
// leaves a backend connection open.
package stream
