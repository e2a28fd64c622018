package protocol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"github.com/alovak/paymentflow/amounts"
	"github.com/alovak/paymentflow/basket"
	"github.com/alovak/paymentflow/flow"
	"github.com/alovak/paymentflow/split"
)

var ErrIllegalState = fmt.Errorf("illegal state")

// ParticipantSession runs the participant side of the protocol for one
// stage invocation at a time: ack first, then exactly one terminal RESPONSE
// or FAILURE, with audit entries relayed out-of-band as SERVICE_EVENTs. A
// force-finish stops the session cooperatively; anything the handler tries
// to send afterwards is dropped.
type ParticipantSession struct {
	logger     *slog.Logger
	ch         Channel
	dispatcher *flow.Dispatcher
	version    string
	listener   flow.EventListener

	mu     sync.Mutex
	active *flow.Session
}

// NewParticipantSession returns a session bound to a channel and a stage
// dispatcher. listener may be nil.
func NewParticipantSession(logger *slog.Logger, ch Channel, dispatcher *flow.Dispatcher, version string, listener flow.EventListener) *ParticipantSession {
	return &ParticipantSession{
		logger:     logger.With(slog.String("component", "participant")),
		ch:         ch,
		dispatcher: dispatcher,
		version:    version,
		listener:   listener,
	}
}

// HandleRequest processes one REQUEST envelope for the named stage. The
// ack goes out before any handler work so the orchestrator can confirm
// liveness and start its response timer. Handler errors and panics become
// FAILURE envelopes; they never propagate out of the session.
func (p *ParticipantSession) HandleRequest(ctx context.Context, stageName string, msg Message) error {
	if msg.Type != MessageTypeRequest {
		return fmt.Errorf("expected %s envelope, got %s: %w", MessageTypeRequest, msg.Type, ErrIllegalState)
	}

	stage, err := flow.StageFromName(stageName)
	if err != nil {
		p.sendFailure(ctx, FailureCodeUnknownStage, err.Error())
		return err
	}

	sess := flow.NewSession(stage, p.logger, func(entry flow.AuditEntry) {
		p.sendAudit(ctx, entry)
	})

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return fmt.Errorf("request already in flight: %w", ErrIllegalState)
	}
	p.active = sess
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
	}()

	if err := p.ch.Send(ctx, Message{Type: MessageTypeRequestAck, SenderVersion: p.version}); err != nil {
		return fmt.Errorf("sending request ack: %w", err)
	}

	result, err := p.dispatcher.Dispatch(ctx, sess, msg.Payload)

	if sess.Finished() {
		// Force-finished mid-flight. The orchestrator has moved on; a late
		// terminal message would be dropped on its side anyway.
		p.logger.Warn("dropping terminal message after force finish", slog.String("stage", stageName))
		return nil
	}
	if err != nil {
		p.sendFailure(ctx, failureCode(err), err.Error())
		return nil
	}
	if !result.HasResponse {
		return nil
	}

	if err := p.ch.Send(ctx, Message{Type: MessageTypeResponse, Payload: result.Payload, SenderVersion: p.version}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// ForceFinish stops the in-flight invocation, if any. The handler is not
// preempted; it observes the finish at its next yield point and any
// response it still sends is dropped.
func (p *ParticipantSession) ForceFinish() {
	p.mu.Lock()
	sess := p.active
	p.mu.Unlock()
	if sess != nil {
		sess.Finish()
	}
}

// DeliverEvent hands an orchestrator event to the session. FINISH_IMMEDIATELY
// force-finishes the in-flight invocation; all events are forwarded to the
// listener.
func (p *ParticipantSession) DeliverEvent(event flow.Event, data map[string]string) {
	if event == flow.EventFinishImmediately {
		p.ForceFinish()
	}
	if p.listener != nil {
		p.listener(event, data)
	}
}

func (p *ParticipantSession) sendFailure(ctx context.Context, code, message string) {
	msg, err := Encode(MessageTypeFailure, p.version, Failure{Code: code, Message: message})
	if err != nil {
		p.logger.Error("encoding failure payload", "err", err)
		return
	}
	if err := p.ch.Send(ctx, msg); err != nil {
		p.logger.Error("sending failure", "err", err)
	}
}

func (p *ParticipantSession) sendAudit(ctx context.Context, entry flow.AuditEntry) {
	msg, err := Encode(MessageTypeServiceEvent, p.version, ServiceEvent{
		Name: ServiceEventAudit,
		Data: map[string]string{
			"severity":  string(entry.Severity),
			"message":   entry.Message,
			"timestamp": strconv.FormatInt(entry.Timestamp.UnixMilli(), 10),
		},
	})
	if err != nil {
		p.logger.Error("encoding audit event", "err", err)
		return
	}
	if err := p.ch.Send(ctx, msg); err != nil {
		p.logger.Error("sending audit event", "err", err)
	}
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, flow.ErrUnknownStage):
		return FailureCodeUnknownStage
	case errors.Is(err, flow.ErrIllegalState), errors.Is(err, flow.ErrNoHandler):
		return FailureCodeIllegalState
	case errors.Is(err, split.ErrUnsupportedOperation):
		return FailureCodeUnsupported
	case errors.Is(err, flow.ErrInvalidResponse),
		errors.Is(err, amounts.ErrCurrencyMismatch),
		errors.Is(err, amounts.ErrInvalidReduction),
		errors.Is(err, basket.ErrNegativeQuantity):
		return FailureCodeInvalidData
	}
	return FailureCodeHandlerFailed
}

// AuditTimestamp parses the timestamp of an audit SERVICE_EVENT back into a
// time value.
func AuditTimestamp(data map[string]string) (time.Time, error) {
	ms, err := strconv.ParseInt(data["timestamp"], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing audit timestamp: %w", err)
	}
	return time.UnixMilli(ms), nil
}
