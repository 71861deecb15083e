package realtime

import "encoding/json"

// Client to server events.
const (
	EventJoinLead    = "join-lead"
	EventLeaveLead   = "leave-lead"
	EventSendMessage = "send-message"
)

// Server to client events.
const (
	EventNewMessage = "new-message"
	EventJoinedLead = "joined-lead"
	EventLeftLead   = "left-lead"
	EventError      = "error"
)

// Event is the envelope for every frame in both directions.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Inbound is a client frame whose payload is decoded once the event name is
// known.
type Inbound struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type LeadRef struct {
	LeadID string `json:"leadId"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(event, code, message string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Event: event, Code: code, Message: message}}
}
