package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mdpilot/config"
	"mdpilot/model"
	"mdpilot/state"
)

// DefaultFlushInterval is the token coalescing tick (about one 60 Hz frame).
const DefaultFlushInterval = 16 * time.Millisecond

// Status is the terminal state of a Session.
type Status int

const (
	StatusCompleted Status = iota
	StatusErrored
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusErrored:
		return "errored"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is what a Session resolves to. Content is the authoritative Done
// payload for a completed session and the partial text for an aborted one.
type Result struct {
	Status  Status
	Content string
	Err     error
}

// SessionConfig configures one streaming call.
type SessionConfig struct {
	Provider      model.Provider
	Request       model.ChatRequest
	Store         *state.Store
	Notifier      model.Notifier
	Association   model.Association
	FlushInterval time.Duration
}

// Session is one streaming call. Tokens are buffered by a single consumer
// goroutine and flushed to the store at most once per flush interval.
type Session struct {
	cfg    SessionConfig
	ctx    context.Context
	cancel context.CancelFunc
	events chan model.StreamEvent

	aborted  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	done   chan struct{}
	result Result
}

var errNoTerminal = errors.New("stream ended without a result")

// OpenSession marks the store as streaming and starts the call.
func OpenSession(ctx context.Context, cfg SessionConfig) *Session {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = model.NotifierFuncs{}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan model.StreamEvent),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	cfg.Store.BeginStreaming()
	go s.produce()
	go s.consume()
	return s
}

// produce runs the transport and forwards its events in order. A transport
// failure or panic without a terminal event becomes an Error event.
func (s *Session) produce() {
	defer close(s.events)

	terminal := false
	send := func(ev model.StreamEvent) error {
		if ev.Kind != model.EventToken {
			terminal = true
		}
		select {
		case s.events <- ev:
			return nil
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if config.DebugLog != nil {
				config.DebugLog.Debugf("[session] provider %s panicked: %v", s.cfg.Provider.Name(), r)
			}
			if !terminal {
				_ = send(model.Error(fmt.Sprint(r)))
			}
		}
	}()

	err := s.cfg.Provider.Stream(s.ctx, s.cfg.Request, send)
	if err != nil && config.DebugLog != nil {
		config.DebugLog.Debugf("[session] provider %s returned: %v", s.cfg.Provider.Name(), err)
	}
	if err != nil && !terminal && s.ctx.Err() == nil {
		_ = send(model.Error(err.Error()))
	}
}

func (s *Session) consume() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	var pending, received strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		s.cfg.Store.AppendStreamToken(pending.String())
		pending.Reset()
	}

	for {
		select {
		case <-s.stopCh:
			flush()
			s.finishAborted(received.String())
			return

		case <-ticker.C:
			flush()

		case ev, ok := <-s.events:
			if s.aborted.Load() || (!ok && s.ctx.Err() != nil) {
				flush()
				s.finishAborted(received.String())
				return
			}
			if !ok {
				flush()
				s.finishErrored(errNoTerminal.Error())
				return
			}

			switch ev.Kind {
			case model.EventToken:
				pending.WriteString(ev.Data)
				received.WriteString(ev.Data)
			case model.EventDone:
				flush()
				s.cfg.Store.FinalizeAssistantMessage(ev.Data, s.cfg.Association)
				s.result = Result{Status: StatusCompleted, Content: ev.Data}
				return
			case model.EventError:
				flush()
				s.finishErrored(ev.Data)
				return
			}
		}
	}
}

func (s *Session) finishErrored(msg string) {
	s.cfg.Store.ResetStreamingContent()
	s.cfg.Store.SetStreaming(false)
	s.cfg.Notifier.Error(msg)
	s.result = Result{Status: StatusErrored, Err: fmt.Errorf("stream: %s", msg)}
}

func (s *Session) finishAborted(partial string) {
	if partial != "" {
		s.cfg.Store.FinalizeAssistantMessage(partial, s.cfg.Association)
	} else {
		s.cfg.Store.SetStreaming(false)
	}
	s.result = Result{Status: StatusAborted, Content: partial}
}

// Done is closed once the session has reached a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	s.cancel()
	return s.result
}

// Stop aborts the session. Events arriving afterwards are ignored; text
// streamed so far is committed as an assistant message. Stop waits until the
// session has settled and is safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.aborted.Store(true)
		close(s.stopCh)
	})
	<-s.done
	s.cancel()
}
