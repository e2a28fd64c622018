package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/alovak/paymentflow/flow"
)

// OrchestratorSession tracks one stage invocation from the orchestrator
// side: it sends the REQUEST, expects the ack, then exactly one terminal
// RESPONSE or FAILURE. Timeout measurement belongs to the caller; when a
// timer fires the caller invokes ForceFinish and any terminal arriving
// after that is dropped without signaling the participant.
type OrchestratorSession struct {
	logger  *slog.Logger
	ch      Channel
	version string

	mu          sync.Mutex
	requested   bool
	acked       bool
	finished    bool
	terminal    *Message
	auditEvents []ServiceEvent
}

// NewOrchestratorSession returns a session sending on the given channel.
func NewOrchestratorSession(logger *slog.Logger, ch Channel, version string) *OrchestratorSession {
	return &OrchestratorSession{
		logger:  logger.With(slog.String("component", "orchestrator")),
		ch:      ch,
		version: version,
	}
}

// SendRequest starts the invocation with the serialized stage payload.
func (o *OrchestratorSession) SendRequest(ctx context.Context, payload string) error {
	o.mu.Lock()
	if o.requested {
		o.mu.Unlock()
		return fmt.Errorf("request already sent: %w", ErrIllegalState)
	}
	o.requested = true
	o.mu.Unlock()

	return o.ch.Send(ctx, Message{Type: MessageTypeRequest, Payload: payload, SenderVersion: o.version})
}

// ForceFinish tells the participant to stop immediately. The invocation is
// over; no terminal message will be accepted after this point.
func (o *OrchestratorSession) ForceFinish(ctx context.Context) error {
	o.mu.Lock()
	o.finished = true
	o.mu.Unlock()

	return o.ch.Send(ctx, Message{Type: MessageTypeForceFinish, SenderVersion: o.version})
}

// SendEvent delivers a one-directional event to the participant.
func (o *OrchestratorSession) SendEvent(ctx context.Context, event flow.Event, data map[string]string) error {
	msg, err := Encode(MessageTypeServiceEvent, o.version, ServiceEvent{Name: string(event), Data: data})
	if err != nil {
		return err
	}
	return o.ch.Send(ctx, msg)
}

// OnMessage feeds a participant envelope into the session. Out-of-sequence
// acks and duplicate or late terminal messages are dropped; the drop is
// logged but never signaled back to the participant.
func (o *OrchestratorSession) OnMessage(msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch msg.Type {
	case MessageTypeRequestAck:
		if !o.requested || o.acked {
			o.logger.Warn("dropping out-of-sequence ack")
			return nil
		}
		o.acked = true
		return nil

	case MessageTypeResponse, MessageTypeFailure:
		if o.finished {
			o.logger.Warn("dropping late terminal message", slog.String("type", string(msg.Type)))
			return nil
		}
		if o.terminal != nil {
			o.logger.Warn("dropping duplicate terminal message", slog.String("type", string(msg.Type)))
			return nil
		}
		if !o.acked {
			return fmt.Errorf("terminal %s before ack: %w", msg.Type, ErrIllegalState)
		}
		m := msg
		o.terminal = &m
		return nil

	case MessageTypeServiceEvent:
		var event ServiceEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			return fmt.Errorf("decoding service event: %w", err)
		}
		if event.Name == ServiceEventAudit {
			o.auditEvents = append(o.auditEvents, event)
		}
		return nil
	}

	return fmt.Errorf("unexpected envelope %s from participant: %w", msg.Type, ErrIllegalState)
}

// Acked reports whether the participant acknowledged the request.
func (o *OrchestratorSession) Acked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.acked
}

// Terminal returns the accepted terminal message, if one arrived.
func (o *OrchestratorSession) Terminal() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.terminal == nil {
		return Message{}, false
	}
	return *o.terminal, true
}

// AuditEvents returns the audit service events received so far.
func (o *OrchestratorSession) AuditEvents() []ServiceEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ServiceEvent, len(o.auditEvents))
	copy(out, o.auditEvents)
	return out
}
