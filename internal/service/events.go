package service

import (
	"encoding/json"
	"time"
)

// Webhook payloads arrive as a loose envelope with the event payload under
// "payload", "data", or at the top level. Arbitrary passthrough fields are
// kept only as the raw body blob; business logic sees these narrow structs.

type Envelope struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

// Candidate returns the bytes holding the event payload, falling back to the
// whole body when neither wrapper field is present.
func (e *Envelope) Candidate(body []byte) []byte {
	if len(e.Payload) > 0 && string(e.Payload) != "null" {
		return e.Payload
	}
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return e.Data
	}
	return body
}

type TeamRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type ConversationOpenedPayload struct {
	Source    string        `json:"source"`
	Href      string        `json:"href" validate:"required"`
	CreatedAt string        `json:"createdAt"`
	Contact   OpenedContact `json:"contact"`
}

type OpenedContact struct {
	Team         *TeamRef `json:"team"`
	AssignedUser string   `json:"assignedUser"`
}

type MessageCreatedPayload struct {
	UUID      string         `json:"uuid" validate:"required"`
	Status    string         `json:"status" validate:"required,oneof=received sent"`
	Channel   string         `json:"channel" validate:"required"`
	CreatedAt string         `json:"createdAt"`
	Contact   MessageContact `json:"contact"`
}

type MessageContact struct {
	ConversationHref string   `json:"conversationHref"`
	Href             string   `json:"href"`
	UUID             string   `json:"uuid"`
	Source           string   `json:"source"`
	Team             *TeamRef `json:"team"`
	AssignedUser     string   `json:"assignedUser"`
}

type ConversationClosedPayload struct {
	Source   string `json:"source"`
	Href     string `json:"href" validate:"required"`
	ClosedAt string `json:"closedAt"`
}

// ConversationHref resolves the conversation identifier for a message event:
// first-present of contact.conversationHref, contact.href, contact.uuid, and
// the message uuid itself.
func (p *MessageCreatedPayload) ConversationHref() string {
	if p.Contact.ConversationHref != "" {
		return p.Contact.ConversationHref
	}
	if p.Contact.Href != "" {
		return p.Contact.Href
	}
	if p.Contact.UUID != "" {
		return p.Contact.UUID
	}
	return p.UUID
}

// parseEventTime parses an upstream-reported timestamp. Upstream clocks are
// advisory only, so callers decide what a zero result falls back to.
func parseEventTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t.UTC(), true
}
