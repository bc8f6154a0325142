// Package backend defines the Session Client: the interface between the
// gateway and the conversational backend, the error taxonomy for every
// backend-facing failure, and the orchestration of one conversation attempt.
//
// # Conversation attempt
//
// Session.Open runs the three backend steps for one inbound request:
//
//  1. FetchChallenge: obtain the requirements token and proof-of-work puzzle
//  2. ExchangeCredential: present the solved proof to obtain a credential
//  3. OpenConversation: open the event stream with that credential
//
// Steps 1 and 2 are retried with jittered exponential backoff on transient
// failures (network errors, per-call timeouts, 5xx). A 4xx response is a
// RejectedError and is never retried. Step 3 is never retried because it is
// long-lived and may already have produced output.
//
// # Protocol isolation
//
// Paths, headers and payload shapes live in the chatgpt subpackage, which
// implements Client. Nothing else in the module knows them.
//
// # Error taxonomy
//
//	RejectedError      BackendRejected (4xx, exhausted 5xx, wrong content type)
//	TimeoutError       BackendTimeout (per-call timeout)
//	TransportError     BackendTimeout once retries are exhausted
//	TruncatedError     StreamTruncated (stream ended without a completion marker)
//	TranslationError   InternalTranslationError (unexpected event shape)
package backend
