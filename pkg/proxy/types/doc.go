// Package types defines the OpenAI-compatible request and response types
// served by the gateway.
//
// Request types:
//   - ChatCompletionRequest: body of POST /v1/chat/completions
//   - Message: one conversation message, content as string or parts
//
// Response types:
//   - ChatCompletionResponse: non-streaming completion
//   - ChatCompletionChunk: one SSE chunk of a streaming completion
//   - ModelList: body of GET /v1/models
//
// Error types:
//   - ErrorResponse: the {"error": {...}} envelope
//   - ErrorDetail.HTTPStatusCode: status derived from the error type
//
// Clients can point a stock OpenAI SDK at the gateway:
//
//	from openai import OpenAI
//	client = OpenAI(base_url="http://localhost:3040/v1", api_key="unused")
//	client.chat.completions.create(
//	    model="gpt-3.5-turbo",
//	    messages=[{"role": "user", "content": "Hello!"}],
//	    stream=True,
//	)
package types
