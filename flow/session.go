package flow

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

var ErrIllegalState = fmt.Errorf("illegal state")

// Session covers a single stage invocation on the participant side. It is
// owned exclusively by the stage handler for the duration of the stage:
// exactly one terminal response may be sent, audit emission is capped, and
// a cooperative finish signal stops the session without preempting the
// handler.
type Session struct {
	stage  Stage
	logger *slog.Logger
	sink   AuditSink
	done   chan struct{}

	mu            sync.Mutex
	finished      bool
	responseSent  bool
	response      string
	audits        []AuditEntry
	droppedAudits int
}

// NewSession returns a session for one invocation of the given stage. sink
// may be nil; when set it receives every accepted audit entry as it is
// emitted.
func NewSession(stage Stage, logger *slog.Logger, sink AuditSink) *Session {
	return &Session{
		stage:  stage,
		logger: logger.With(slog.String("stage", string(stage))),
		sink:   sink,
		done:   make(chan struct{}),
	}
}

// Stage returns the stage this session belongs to.
func (s *Session) Stage() Stage {
	return s.stage
}

// SendResponse delivers the terminal response for this invocation. Sending
// a second response fails with ErrIllegalState and the first response
// remains the one delivered. A response sent after the session has been
// finished is dropped silently; the orchestrator no longer accepts it and
// that is not an error for the participant.
func (s *Session) SendResponse(response any) error {
	payload, err := marshalResponse(s.stage, response)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		s.logger.Warn("dropping response sent after finish")
		return nil
	}
	if s.responseSent {
		return fmt.Errorf("response already sent for %s invocation: %w", s.stage, ErrIllegalState)
	}
	s.responseSent = true
	s.response = payload
	return nil
}

func marshalResponse(stage Stage, response any) (string, error) {
	if fr, ok := response.(*FlowResponse); ok {
		if err := fr.Validate(); err != nil {
			return "", err
		}
		if fr.CancelTransaction && !stage.CanCancel() {
			return "", fmt.Errorf("%w: cancellation not allowed from %s", ErrInvalidResponse, stage)
		}
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return "", fmt.Errorf("encoding %s response: %w", stage, err)
	}
	return string(payload), nil
}

// Response returns the delivered response payload and whether one was sent.
func (s *Session) Response() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response, s.responseSent
}

// AddAuditEntry emits a diagnostic entry for this invocation. Emission is
// capped at MaxAuditEntries; overflow is dropped silently.
func (s *Session) AddAuditEntry(severity AuditSeverity, message string) {
	entry := AuditEntry{Severity: severity, Message: message, Timestamp: time.Now()}

	s.mu.Lock()
	if s.finished || len(s.audits) >= MaxAuditEntries {
		s.droppedAudits++
		s.mu.Unlock()
		return
	}
	s.audits = append(s.audits, entry)
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink(entry)
	}
}

// AuditEntries returns the accepted audit entries.
func (s *Session) AuditEntries() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.audits))
	copy(out, s.audits)
	return out
}

// Finish stops the session cooperatively: in-flight work is not preempted,
// but any response sent from now on is dropped. Safe to call more than
// once.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	close(s.done)
}

// Finished reports whether the session has been finished.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Done returns a channel closed when the session is finished. Handlers
// doing long-running work should check it at their yield points.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
