package model

import "context"

// Provider abstracts a streaming chat-completion transport (Perplexity,
// OpenAI, OpenRouter, Anthropic, Ollama).
//
// Stream blocks until the response ends. Every event is handed to the
// callback in order; exactly one terminal event (Done or Error) is emitted for
// a stream that reaches the server. A non-nil return means the transport
// failed; the caller treats a failure without a terminal event as Error.
type Provider interface {
	// Name returns the provider id ("perplexity", "openai", ...).
	Name() string

	// Stream sends the request and emits events through callback.
	Stream(ctx context.Context, req ChatRequest, callback StreamCallback) error

	// ListModels returns models available for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ChatRequest is one completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature *float64
}

// StreamCallback receives stream events. A returned error (usually the
// context error) tells the provider to stop reading.
type StreamCallback func(event StreamEvent) error

// StreamEventKind discriminates StreamEvent.
type StreamEventKind int

const (
	EventToken StreamEventKind = iota
	EventDone
	EventError
)

func (k StreamEventKind) String() string {
	switch k {
	case EventToken:
		return "Token"
	case EventDone:
		return "Done"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StreamEvent is a Token (partial text), Done (complete text) or Error
// (message).
type StreamEvent struct {
	Kind StreamEventKind
	Data string
}

// Token builds a Token event.
func Token(text string) StreamEvent { return StreamEvent{Kind: EventToken, Data: text} }

// Done builds a Done event carrying the complete response.
func Done(full string) StreamEvent { return StreamEvent{Kind: EventDone, Data: full} }

// Error builds an Error event.
func Error(msg string) StreamEvent { return StreamEvent{Kind: EventError, Data: msg} }

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	Name        string // API name, e.g. "meta-llama/llama-3.2-90b-instruct"
	DisplayName string // Name shown in lists; empty means Name
	Size        int64
	Provider    string
}

// Label returns the name to show for the model.
func (m ModelInfo) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// Notifier is the non-blocking, user-visible notification channel.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NotifierFuncs adapts two functions to Notifier. Nil funcs are ignored.
type NotifierFuncs struct {
	OnSuccess func(msg string)
	OnError   func(msg string)
}

func (n NotifierFuncs) Success(msg string) {
	if n.OnSuccess != nil {
		n.OnSuccess(msg)
	}
}

func (n NotifierFuncs) Error(msg string) {
	if n.OnError != nil {
		n.OnError(msg)
	}
}
