package flow

// Event is a one-directional notification from the orchestrator to a stage
// participant. Events are not requests and carry no response.
type Event string

const (
	EventResumeUserInterface         Event = "RESUME_USER_INTERFACE"
	EventCancelOrResumeUserInterface Event = "CANCEL_OR_RESUME_USER_INTERFACE"
	EventFinishImmediately           Event = "FINISH_IMMEDIATELY"
	EventResponseAccepted            Event = "RESPONSE_ACCEPTED"
	EventResponseRejected            Event = "RESPONSE_REJECTED"
)

// EventListener observes events delivered to a participant session. Data
// carries event details, e.g. the rejection reason for RESPONSE_REJECTED.
type EventListener func(event Event, data map[string]string)
