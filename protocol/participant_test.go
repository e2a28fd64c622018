package protocol_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/alovak/paymentflow/flow"
	"github.com/alovak/paymentflow/protocol"
	"github.com/alovak/paymentflow/split"
)

type recorder struct {
	messages []protocol.Message
}

func (r *recorder) Send(_ context.Context, msg protocol.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func request(payload string) protocol.Message {
	return protocol.Message{Type: protocol.MessageTypeRequest, Payload: payload, SenderVersion: "orchestrator/1.0"}
}

func TestParticipant_AckBeforeResponse(t *testing.T) {
	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StagePreFlow, func(ctx context.Context, sess *flow.Session, req *flow.PaymentStageRequest) error {
		return sess.SendResponse(flow.NewFlowResponse())
	})

	rec := &recorder{}
	p := protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", nil)

	require.NoError(t, p.HandleRequest(context.Background(), "PRE_FLOW", request("{}")))

	require.Len(t, rec.messages, 2)
	require.Equal(t, protocol.MessageTypeRequestAck, rec.messages[0].Type)
	require.Empty(t, rec.messages[0].Payload)
	require.Equal(t, protocol.MessageTypeResponse, rec.messages[1].Type)
	require.Equal(t, "app/1.0", rec.messages[1].SenderVersion)
}

func TestParticipant_HandlerErrorBecomesFailure(t *testing.T) {
	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StageSplit, func(ctx context.Context, sess *flow.Session, req *flow.SplitStageRequest) error {
		return fmt.Errorf("no basket: %w", split.ErrUnsupportedOperation)
	})

	rec := &recorder{}
	p := protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", nil)

	require.NoError(t, p.HandleRequest(context.Background(), "SPLIT", request("{}")))

	require.Len(t, rec.messages, 2)
	require.Equal(t, protocol.MessageTypeFailure, rec.messages[1].Type)

	var failure protocol.Failure
	require.NoError(t, json.Unmarshal([]byte(rec.messages[1].Payload), &failure))
	require.Equal(t, protocol.FailureCodeUnsupported, failure.Code)
	require.Contains(t, failure.Message, "no basket")
}

func TestParticipant_PanicBecomesFailure(t *testing.T) {
	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StageGeneric, func(ctx context.Context, sess *flow.Session, req *flow.GenericRequest) error {
		panic("boom")
	})

	rec := &recorder{}
	p := protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", nil)

	require.NoError(t, p.HandleRequest(context.Background(), "GENERIC", request(`{"type":"REVERSAL"}`)))

	require.Equal(t, protocol.MessageTypeFailure, rec.messages[1].Type)
	var failure protocol.Failure
	require.NoError(t, json.Unmarshal([]byte(rec.messages[1].Payload), &failure))
	require.Equal(t, protocol.FailureCodeHandlerFailed, failure.Code)
}

func TestParticipant_UnknownStage(t *testing.T) {
	rec := &recorder{}
	p := protocol.NewParticipantSession(testLogger(), rec, flow.NewDispatcher(testLogger()), "app/1.0", nil)

	err := p.HandleRequest(context.Background(), "BOGUS", request("{}"))
	require.ErrorIs(t, err, flow.ErrUnknownStage)

	require.Len(t, rec.messages, 1)
	require.Equal(t, protocol.MessageTypeFailure, rec.messages[0].Type)
	var failure protocol.Failure
	require.NoError(t, json.Unmarshal([]byte(rec.messages[0].Payload), &failure))
	require.Equal(t, protocol.FailureCodeUnknownStage, failure.Code)
}

func TestParticipant_AuditEntriesAsServiceEvents(t *testing.T) {
	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StagePreFlow, func(ctx context.Context, sess *flow.Session, req *flow.PaymentStageRequest) error {
		for i := 0; i < flow.MaxAuditEntries+2; i++ {
			sess.AddAuditEntry(flow.AuditInfo, "checking capabilities")
		}
		return sess.SendResponse(flow.NewFlowResponse())
	})

	rec := &recorder{}
	p := protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", nil)

	require.NoError(t, p.HandleRequest(context.Background(), "PRE_FLOW", request("{}")))

	// ack + capped audits + response; overflow dropped silently
	require.Len(t, rec.messages, 2+flow.MaxAuditEntries)
	require.Equal(t, protocol.MessageTypeRequestAck, rec.messages[0].Type)
	for _, m := range rec.messages[1 : 1+flow.MaxAuditEntries] {
		require.Equal(t, protocol.MessageTypeServiceEvent, m.Type)
		var event protocol.ServiceEvent
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &event))
		require.Equal(t, protocol.ServiceEventAudit, event.Name)
		require.Equal(t, string(flow.AuditInfo), event.Data["severity"])
		_, err := protocol.AuditTimestamp(event.Data)
		require.NoError(t, err)
	}
	require.Equal(t, protocol.MessageTypeResponse, rec.messages[len(rec.messages)-1].Type)
}

func TestParticipant_ForceFinishDropsTerminal(t *testing.T) {
	rec := &recorder{}
	var p *protocol.ParticipantSession

	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StageTransactionProcessing, func(ctx context.Context, sess *flow.Session, req *flow.TransactionStageRequest) error {
		// force-finish lands while the handler is still working
		p.ForceFinish()
		return sess.SendResponse(flow.NewFlowResponse())
	})

	p = protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", nil)
	require.NoError(t, p.HandleRequest(context.Background(), "TRANSACTION_PROCESSING", request("{}")))

	// only the ack made it out
	require.Len(t, rec.messages, 1)
	require.Equal(t, protocol.MessageTypeRequestAck, rec.messages[0].Type)
}

func TestParticipant_FinishImmediatelyEvent(t *testing.T) {
	var events []flow.Event
	rec := &recorder{}
	var p *protocol.ParticipantSession

	d := flow.NewDispatcher(testLogger())
	flow.Register(d, flow.StageSplit, func(ctx context.Context, sess *flow.Session, req *flow.SplitStageRequest) error {
		p.DeliverEvent(flow.EventFinishImmediately, nil)
		select {
		case <-sess.Done():
		default:
			t.Error("session not finished after FINISH_IMMEDIATELY")
		}
		return sess.SendResponse(flow.NewFlowResponse())
	})

	p = protocol.NewParticipantSession(testLogger(), rec, d, "app/1.0", func(event flow.Event, data map[string]string) {
		events = append(events, event)
	})

	require.NoError(t, p.HandleRequest(context.Background(), "SPLIT", request("{}")))
	require.Equal(t, []flow.Event{flow.EventFinishImmediately}, events)
	require.Len(t, rec.messages, 1) // response dropped
}

func TestParticipant_RejectsNonRequestEnvelope(t *testing.T) {
	p := protocol.NewParticipantSession(testLogger(), &recorder{}, flow.NewDispatcher(testLogger()), "app/1.0", nil)

	err := p.HandleRequest(context.Background(), "PRE_FLOW", protocol.Message{Type: protocol.MessageTypeResponse})
	require.ErrorIs(t, err, protocol.ErrIllegalState)
}
