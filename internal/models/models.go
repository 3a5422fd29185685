package models

import "time"

// ConversationCase is one open-to-close lifecycle instance of a conversation.
// A conversation may accumulate several cases over time (reopenings), but at
// most one of them is open at any moment.
type ConversationCase struct {
	CaseID                    string     `json:"case_id"`
	ConversationHref          string     `json:"conversation_href"`
	TeamUUID                  *string    `json:"team_uuid"`
	TeamName                  *string    `json:"team_name"`
	AssignedUserEmail         *string    `json:"assigned_user_email"`
	OpenedReceivedAtUTC       time.Time  `json:"opened_received_at_utc"`
	OpenedPayloadCreatedAtUTC *time.Time `json:"opened_payload_created_at_utc"`
	Answered                  bool       `json:"answered"`
	FirstResponseAtUTC        *time.Time `json:"first_response_at_utc"`
	FirstResponseSeconds      *int64     `json:"first_response_seconds"`
	IsClosed                  bool       `json:"is_closed"`
	ClosedReceivedAtUTC       *time.Time `json:"closed_received_at_utc"`
	ClosedPayloadClosedAtUTC  *time.Time `json:"closed_payload_closed_at_utc"`
	DurationSeconds           *int64     `json:"duration_seconds"`
	LocalDate                 time.Time  `json:"local_date"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// MessageRecord is a write-once dedup ledger entry for a delivered message.
type MessageRecord struct {
	UUID             string    `json:"uuid"`
	ConversationHref string    `json:"conversation_href"`
	Status           string    `json:"status"`
	Channel          string    `json:"channel"`
	CreatedAtUTC     time.Time `json:"created_at_utc"`
	Payload          []byte    `json:"payload,omitempty"`
}

type ConversationDayMetric struct {
	ConversationHref             string     `json:"conversation_href"`
	LocalDate                    time.Time  `json:"local_date"`
	InboundCountDay              int        `json:"inbound_count_day"`
	OutboundCountDay             int        `json:"outbound_count_day"`
	FirstInboundAtUTC            *time.Time `json:"first_inbound_at_utc"`
	FirstOutboundAfterInboundUTC *time.Time `json:"first_outbound_after_inbound_at_utc"`
	AnsweredSameDay              bool       `json:"answered_same_day"`
	TeamUUID                     *string    `json:"team_uuid"`
	TeamName                     *string    `json:"team_name"`
	UpdatedAt                    time.Time  `json:"updated_at"`
}

type TeamDayMetric struct {
	TeamUUID      string    `json:"team_uuid"`
	TeamName      string    `json:"team_name"`
	LocalDate     time.Time `json:"local_date"`
	InboundCount  int       `json:"inbound_count"`
	OutboundCount int       `json:"outbound_count"`
	Conversations int       `json:"conversations"`
	AnsweredCount int       `json:"answered_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
