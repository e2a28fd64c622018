package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"
)

var ErrNoHandler = fmt.Errorf("no handler registered")

// Result is the outcome of a handled stage invocation.
type Result struct {
	Stage   Stage
	Payload string
	// HasResponse is false when the handler sent no response, which is
	// only expected for fire-and-forget stages.
	HasResponse bool
}

type handlerFunc func(ctx context.Context, sess *Session, payload string) error

// Dispatcher routes an inbound stage request to the handler registered for
// that stage. One dispatcher instance serves one participant; stages
// execute sequentially, so Handle is never called concurrently for the same
// flow.
type Dispatcher struct {
	logger   *slog.Logger
	handlers map[Stage]handlerFunc
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With(slog.String("component", "dispatcher")),
		handlers: make(map[Stage]handlerFunc),
	}
}

// Register binds a typed handler to a stage. The inbound payload is
// deserialized into Req before the handler runs; the handler declares its
// changes through the session. Registering a stage twice replaces the
// previous handler.
func Register[Req any](d *Dispatcher, stage Stage, handle func(ctx context.Context, sess *Session, req *Req) error) {
	d.handlers[stage] = func(ctx context.Context, sess *Session, payload string) error {
		req := new(Req)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), req); err != nil {
				return fmt.Errorf("decoding %s request: %w", stage, err)
			}
		}
		return handle(ctx, sess, req)
	}
}

// Stages returns the stages a handler is registered for.
func (d *Dispatcher) Stages() []Stage {
	out := make([]Stage, 0, len(d.handlers))
	for stage := range d.handlers {
		out = append(out, stage)
	}
	return out
}

// Handle is the stage dispatch entry point: it maps the stage name, builds
// a fresh session and runs the registered handler. A handler panic is
// recovered and surfaced as an error so a participant failure can be
// converted into a protocol FAILURE without taking the process down.
func (d *Dispatcher) Handle(ctx context.Context, stageName, payload string, sink AuditSink) (*Result, error) {
	stage, err := StageFromName(stageName)
	if err != nil {
		return nil, err
	}
	sess := NewSession(stage, d.logger, sink)
	return d.Dispatch(ctx, sess, payload)
}

// Dispatch runs the registered handler against an existing session. Callers
// that need to observe or finish the session mid-flight (force-finish)
// create the session themselves and use Dispatch instead of Handle.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, payload string) (_ *Result, err error) {
	stage := sess.Stage()
	handle, ok := d.handlers[stage]
	if !ok {
		return nil, fmt.Errorf("%w for stage %s", ErrNoHandler, stage)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("stage handler panicked", slog.String("stage", string(stage)), slog.Any("panic", r))
			err = fmt.Errorf("stage %s handler panicked: %v", stage, r)
		}
	}()

	if err := handle(ctx, sess, payload); err != nil {
		return nil, fmt.Errorf("handling %s: %w", stage, err)
	}

	response, sent := sess.Response()
	if !sent && stage.ExpectsResponse() && !sess.Finished() {
		return nil, fmt.Errorf("stage %s handler returned without a response: %w", stage, ErrIllegalState)
	}

	return &Result{Stage: stage, Payload: response, HasResponse: sent}, nil
}
