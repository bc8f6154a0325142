// Package chatgpt implements backend.Client for the anonymous ChatGPT web
// backend.
//
// Everything that depends on the backend's private, unversioned protocol
// lives here: endpoint paths, the browser header set, request payloads and
// the decoding of the conversation event feed. When the backend changes,
// this is the only package that should need an update.
//
// The conversation feed is Server-Sent Events where every data line carries
// the full assistant message so far. The decoder turns that cumulative text
// into incremental backend.EventDelta values, one per new fragment:
//
//	data: {"message":{"id":"m1","author":{"role":"assistant"},"content":{"content_type":"text","parts":["Hel"]},"status":"in_progress"}}
//	data: {"message":{"id":"m1","author":{"role":"assistant"},"content":{"content_type":"text","parts":["Hello"]},"status":"finished_successfully"}}
//	data: [DONE]
//
// decodes to delta("Hel"), delta("lo"), message_complete, done.
package chatgpt
