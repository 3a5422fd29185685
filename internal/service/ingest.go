package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/db"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/models"
)

const (
	trackedSource   = "whatsapp"
	openDedupWindow = 60 * time.Second
)

const (
	ReasonNonWhatsappSource  = "non_whatsapp_source"
	ReasonNonWhatsappChannel = "non_whatsapp_channel"
	ReasonNoOpenCase         = "no_open_case"
	ReasonUnsupportedEvent   = "unsupported_event"
)

// Result is the terminal outcome of one webhook delivery. Duplicates and
// ignorable events are normal outcomes, not errors.
type Result struct {
	Inserted bool   `json:"inserted,omitempty"`
	Updated  bool   `json:"updated,omitempty"`
	Deduped  bool   `json:"deduped,omitempty"`
	Ignored  bool   `json:"ignored,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func ignored(reason string) Result {
	return Result{Ignored: true, Reason: reason}
}

// ValidationError rejects an event missing a field required for reporting
// correctness. The event is not retried; callers surface a 4xx upstream.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

var ErrInvalidTimestamp = errors.New("invalid createdAt timestamp")

// Ingestor turns webhook deliveries into case and rollup updates. Every
// delivery is one transaction against the store; there is no in-process
// state, so any number of instances can run concurrently.
type Ingestor struct {
	Store *db.Store
	Loc   *time.Location
	Now   func() time.Time
}

func NewIngestor(store *db.Store, loc *time.Location) *Ingestor {
	return &Ingestor{Store: store, Loc: loc, Now: time.Now}
}

func (ing *Ingestor) localDate(t time.Time) string {
	return t.In(ing.Loc).Format("2006-01-02")
}

// ConversationOpened creates a new case unless an open for the same
// conversation was recorded within the last 60 seconds, which is treated as a
// redelivery of the same physical event.
func (ing *Ingestor) ConversationOpened(ctx context.Context, p ConversationOpenedPayload, raw []byte) (Result, error) {
	if p.Source != trackedSource {
		return ignored(ReasonNonWhatsappSource), nil
	}
	if p.Href == "" {
		return Result{}, &ValidationError{Field: "href"}
	}
	if p.Contact.Team == nil || p.Contact.Team.UUID == "" {
		return Result{}, &ValidationError{Field: "contact.team.uuid"}
	}
	if p.Contact.Team.Name == "" {
		return Result{}, &ValidationError{Field: "contact.team.name"}
	}

	now := ing.Now().UTC()
	var payloadCreatedAt *time.Time
	if t, ok := parseEventTime(p.CreatedAt); ok {
		payloadCreatedAt = &t
	}

	cs := models.ConversationCase{
		CaseID:                    CaseID(p.Href, now),
		ConversationHref:          p.Href,
		TeamUUID:                  &p.Contact.Team.UUID,
		TeamName:                  &p.Contact.Team.Name,
		OpenedReceivedAtUTC:       now,
		OpenedPayloadCreatedAtUTC: payloadCreatedAt,
		LocalDate:                 now.In(ing.Loc),
	}
	if p.Contact.AssignedUser != "" {
		cs.AssignedUserEmail = &p.Contact.AssignedUser
	}

	var res Result
	err := ing.Store.WithTx(ctx, func(tx pgx.Tx) error {
		dup, err := ing.Store.HasRecentCase(ctx, tx, p.Href, now.Add(-openDedupWindow))
		if err != nil {
			return err
		}
		if dup {
			res = Result{Deduped: true}
			return nil
		}
		if err := ing.Store.InsertCase(ctx, tx, cs); err != nil {
			return err
		}
		res = Result{Inserted: true}
		return nil
	})
	return res, err
}

// MessageCreated records the message in the dedup ledger and, when newly
// accepted, applies the day/team rollups and (for outbound messages) the
// first-response update, all inside one transaction.
func (ing *Ingestor) MessageCreated(ctx context.Context, p MessageCreatedPayload, raw []byte) (Result, error) {
	if p.Channel != trackedSource {
		return ignored(ReasonNonWhatsappChannel), nil
	}
	if p.Contact.Source != "" && p.Contact.Source != trackedSource {
		return ignored(ReasonNonWhatsappSource), nil
	}

	createdAt := ing.Now().UTC()
	if p.CreatedAt != "" {
		t, ok := parseEventTime(p.CreatedAt)
		if !ok {
			return Result{}, ErrInvalidTimestamp
		}
		createdAt = t
	}

	href := p.ConversationHref()
	localDate := ing.localDate(createdAt)

	var teamUUID, teamName *string
	if p.Contact.Team != nil {
		if p.Contact.Team.UUID != "" {
			teamUUID = &p.Contact.Team.UUID
		}
		if p.Contact.Team.Name != "" {
			teamName = &p.Contact.Team.Name
		}
	}

	rec := models.MessageRecord{
		UUID:             p.UUID,
		ConversationHref: href,
		Status:           p.Status,
		Channel:          p.Channel,
		CreatedAtUTC:     createdAt,
		Payload:          raw,
	}

	var res Result
	err := ing.Store.WithTx(ctx, func(tx pgx.Tx) error {
		accepted, err := ing.Store.RecordMessage(ctx, tx, rec)
		if err != nil {
			return err
		}
		if !accepted {
			res = Result{Deduped: true}
			return nil
		}

		switch p.Status {
		case "received":
			firstOfDay, err := ing.Store.ApplyInboundDay(ctx, tx, href, localDate, createdAt, teamUUID, teamName)
			if err != nil {
				return err
			}
			if teamUUID != nil && teamName != nil {
				if err := ing.Store.ApplyInboundTeam(ctx, tx, *teamUUID, *teamName, localDate, firstOfDay); err != nil {
					return err
				}
			}
		case "sent":
			newlyAnswered, err := ing.Store.ApplyOutboundDay(ctx, tx, href, localDate, createdAt, teamUUID, teamName)
			if err != nil {
				return err
			}
			if teamUUID != nil && teamName != nil {
				if err := ing.Store.ApplyOutboundTeam(ctx, tx, *teamUUID, *teamName, localDate, newlyAnswered); err != nil {
					return err
				}
			}
			if err := ing.Store.AnswerLatestOpenCase(ctx, tx, href, createdAt); err != nil {
				return err
			}
		}

		res = Result{Inserted: true}
		return nil
	})
	return res, err
}

// ConversationClosed closes the newest open case for the conversation.
// Closing a conversation with no open case is a no-op signal, which also
// covers a close delivered before its open was persisted.
func (ing *Ingestor) ConversationClosed(ctx context.Context, p ConversationClosedPayload, raw []byte) (Result, error) {
	if p.Source != trackedSource {
		return ignored(ReasonNonWhatsappSource), nil
	}
	if p.Href == "" {
		return Result{}, &ValidationError{Field: "href"}
	}

	now := ing.Now().UTC()
	var payloadClosedAt *time.Time
	if t, ok := parseEventTime(p.ClosedAt); ok {
		payloadClosedAt = &t
	}

	var res Result
	err := ing.Store.WithTx(ctx, func(tx pgx.Tx) error {
		closed, err := ing.Store.CloseLatestOpenCase(ctx, tx, p.Href, now, payloadClosedAt)
		if err != nil {
			return err
		}
		if !closed {
			res = ignored(ReasonNoOpenCase)
			return nil
		}
		res = Result{Updated: true}
		return nil
	})
	return res, err
}

// CaseID derives the stable case identity from the conversation and the
// instant its opening event was received.
func CaseID(conversationHref string, openedAt time.Time) string {
	return conversationHref + "::" + openedAt.UTC().Format(time.RFC3339Nano)
}
