package translator

import (
	"math/rand/v2"
	"strings"
	"time"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/proxy/types"
)

const completionIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCompletionID returns "chatcmpl-" followed by 16 random alphanumerics.
func NewCompletionID() string {
	var b strings.Builder
	b.Grow(len("chatcmpl-") + 16)
	b.WriteString("chatcmpl-")
	for i := 0; i < 16; i++ {
		b.WriteByte(completionIDAlphabet[rand.IntN(len(completionIDAlphabet))])
	}
	return b.String()
}

// Outbound maps backend events of one response to OpenAI chunks. It is not
// safe for concurrent use; each response owns one.
type Outbound struct {
	id       string
	created  int64
	model    string
	roleSent bool
	finished bool
	content  strings.Builder
}

// NewOutbound starts a response for the advertised model.
func NewOutbound(model string, now time.Time) *Outbound {
	return &Outbound{
		id:      NewCompletionID(),
		created: now.Unix(),
		model:   model,
	}
}

// ID returns the completion id shared by every chunk.
func (o *Outbound) ID() string {
	return o.id
}

// Finished reports whether the terminal chunk was produced.
func (o *Outbound) Finished() bool {
	return o.finished
}

// Content returns all delta text seen so far.
func (o *Outbound) Content() string {
	return o.content.String()
}

// Translate maps one event to at most one chunk. Delta text is copied byte
// for byte. Complete, error and done events produce the terminal chunk, after
// which every event is ignored. A nil chunk means nothing to emit.
func (o *Outbound) Translate(ev backend.Event) *types.ChatCompletionChunk {
	if o.finished {
		return nil
	}

	switch ev.Type {
	case backend.EventDelta:
		if ev.Text == "" {
			return nil
		}
		o.content.WriteString(ev.Text)

		delta := types.Delta{Content: ev.Text}
		if !o.roleSent {
			delta.Role = "assistant"
			o.roleSent = true
		}
		return o.chunk(delta, nil, nil)

	case backend.EventComplete, backend.EventError, backend.EventDone:
		return o.Stop()

	default:
		return nil
	}
}

// Stop returns the terminal chunk, or nil if it was already produced.
func (o *Outbound) Stop() *types.ChatCompletionChunk {
	if o.finished {
		return nil
	}
	o.finished = true

	reason := types.FinishReasonStop
	return o.chunk(types.Delta{}, &reason, &types.Usage{})
}

// Completion returns the non-streaming response for the content seen so far.
func (o *Outbound) Completion() *types.ChatCompletionResponse {
	return &types.ChatCompletionResponse{
		ID:      o.id,
		Object:  types.ObjectChatCompletion,
		Created: o.created,
		Model:   o.model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ResponseMessage{Role: "assistant", Content: o.content.String()},
			FinishReason: types.FinishReasonStop,
		}},
		Usage: types.Usage{},
	}
}

func (o *Outbound) chunk(delta types.Delta, finish *string, usage *types.Usage) *types.ChatCompletionChunk {
	return &types.ChatCompletionChunk{
		ID:      o.id,
		Object:  types.ObjectChatCompletionChunk,
		Created: o.created,
		Model:   o.model,
		Choices: []types.StreamChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
		Usage: usage,
	}
}
