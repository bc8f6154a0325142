// Package translator converts between the OpenAI chat-completion shape and
// the backend's conversation model.
//
// Inbound, the stateless message list becomes one backend "next" action.
// System messages are folded in front of the first user message:
//
//	[{system, "Be terse"}, {user, "Hi"}]  ->  user "Be terse\nHi"
//
// With history, HistoryMultiTurn keeps one backend turn per message while
// HistoryFlatten joins them into a single prompt, wrapping user turns in
// [INST]...[/INST].
//
// Outbound, each backend event maps to at most one chunk. The first content
// chunk carries the assistant role; completion, backend errors and the done
// marker all produce the same terminal chunk with finish_reason "stop".
package translator
