// Package handlers implements the OpenAI-compatible endpoints.
//
// ChatHandler drives one backend conversation per request: it parses and
// translates the messages, opens the conversation through a
// ConversationOpener and either relays the event feed as Server-Sent Events
// or collects it into one chat.completion body. ModelsHandler advertises
// the single configured model.
//
// Error envelopes are produced by proxy.HandleError; backend detail never
// reaches the client.
package handlers
