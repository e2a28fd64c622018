// Package protocol implements the wire-level contract between an
// orchestrator and a participant app: the message envelope, the
// ack/response/failure sequence of a stage invocation and the out-of-band
// service events. How bytes move between the two processes is a transport
// concern hidden behind the Channel interface.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageType identifies an envelope.
type MessageType string

const (
	MessageTypeRequest      MessageType = "REQUEST"
	MessageTypeRequestAck   MessageType = "REQUEST_ACK"
	MessageTypeResponse     MessageType = "RESPONSE"
	MessageTypeFailure      MessageType = "FAILURE"
	MessageTypeForceFinish  MessageType = "FORCE_FINISH"
	MessageTypeServiceEvent MessageType = "SERVICE_EVENT"
)

// Message is the envelope every protocol exchange travels in. Payload is a
// serialized, type-specific body; SenderVersion identifies the sending
// implementation for compatibility checks.
type Message struct {
	Type          MessageType `json:"type"`
	Payload       string      `json:"payload,omitempty"`
	SenderVersion string      `json:"sender_version"`
}

// Failure is the payload of a FAILURE envelope: a stable error code plus a
// human-readable message.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Failure codes surfaced to the orchestrator.
const (
	FailureCodeUnknownStage  = "UNKNOWN_STAGE"
	FailureCodeIllegalState  = "ILLEGAL_STATE"
	FailureCodeInvalidData   = "INVALID_DATA"
	FailureCodeUnsupported   = "UNSUPPORTED_OPERATION"
	FailureCodeHandlerFailed = "HANDLER_FAILED"
)

// ServiceEvent is the payload of a SERVICE_EVENT envelope. Audit entries
// travel as ServiceEventAudit with the entry serialized into Data.
type ServiceEvent struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data,omitempty"`
}

// ServiceEventAudit is the event name carrying an audit entry.
const ServiceEventAudit = "AUDIT"

// Channel delivers envelopes to the peer. Delivery within one stage session
// is FIFO; no ordering is guaranteed across sessions.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Encode serializes a payload body into an envelope of the given type.
func Encode(msgType MessageType, senderVersion string, payload any) (Message, error) {
	msg := Message{Type: msgType, SenderVersion: senderVersion}
	if payload == nil {
		return msg, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", msgType, err)
	}
	msg.Payload = string(body)
	return msg, nil
}
