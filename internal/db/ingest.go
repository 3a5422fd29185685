package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/models"
)

// RecordMessage writes the dedup ledger entry for a delivered message. It
// returns false when the uuid was already recorded, in which case the caller
// must not apply any further side effects for this delivery.
func (s *Store) RecordMessage(ctx context.Context, tx pgx.Tx, m models.MessageRecord) (bool, error) {
	var uuid string
	err := tx.QueryRow(ctx, `
		INSERT INTO messages_raw (uuid, conversation_href, status, channel, created_at_utc, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (uuid) DO NOTHING
		RETURNING uuid
	`, m.UUID, m.ConversationHref, m.Status, m.Channel, m.CreatedAtUTC, m.Payload).Scan(&uuid)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasRecentCase reports whether a case for the conversation was opened at or
// after windowStart. Opened events carry no stable identifier, so a second
// delivery inside the window is treated as a duplicate of the same open.
func (s *Store) HasRecentCase(ctx context.Context, tx pgx.Tx, conversationHref string, windowStart time.Time) (bool, error) {
	var caseID string
	err := tx.QueryRow(ctx, `
		SELECT case_id
		FROM conversation_cases
		WHERE conversation_href = $1
		  AND opened_received_at_utc >= $2
		ORDER BY opened_received_at_utc DESC
		LIMIT 1
	`, conversationHref, windowStart).Scan(&caseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) InsertCase(ctx context.Context, tx pgx.Tx, c models.ConversationCase) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO conversation_cases (
			case_id, conversation_href, team_uuid, team_name, assigned_user_email,
			opened_received_at_utc, opened_payload_created_at_utc, local_date, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, now())
	`, c.CaseID, c.ConversationHref, c.TeamUUID, c.TeamName, c.AssignedUserEmail,
		c.OpenedReceivedAtUTC, c.OpenedPayloadCreatedAtUTC, c.LocalDate.Format("2006-01-02"))
	return err
}

// ApplyInboundDay upserts the conversation day row for an inbound message,
// bumping the counter and pulling first_inbound_at_utc to the earliest seen.
// The returned flag is true when this inbound created the day row, i.e. it is
// the first tracked inbound for the conversation on that local date.
func (s *Store) ApplyInboundDay(ctx context.Context, tx pgx.Tx, conversationHref string, localDate string, at time.Time, teamUUID, teamName *string) (bool, error) {
	var firstOfDay bool
	err := tx.QueryRow(ctx, `
		INSERT INTO conversation_day_metrics (
			conversation_href, local_date, first_inbound_at_utc, inbound_count_day,
			team_uuid, team_name, updated_at
		)
		VALUES ($1, $2::date, $3, 1, $4, $5, now())
		ON CONFLICT (conversation_href, local_date) DO UPDATE SET
			inbound_count_day = conversation_day_metrics.inbound_count_day + 1,
			first_inbound_at_utc = CASE
				WHEN conversation_day_metrics.first_inbound_at_utc IS NULL THEN EXCLUDED.first_inbound_at_utc
				ELSE LEAST(conversation_day_metrics.first_inbound_at_utc, EXCLUDED.first_inbound_at_utc)
			END,
			updated_at = now()
		RETURNING inbound_count_day = 1
	`, conversationHref, localDate, at, teamUUID, teamName).Scan(&firstOfDay)
	return firstOfDay, err
}

// ApplyOutboundDay upserts the conversation day row for an outbound message.
// first_outbound_after_inbound_at_utc is set once, on the first outbound whose
// timestamp exceeds the recorded first inbound of the day; the returned flag
// is true exactly when this statement set it.
func (s *Store) ApplyOutboundDay(ctx context.Context, tx pgx.Tx, conversationHref string, localDate string, at time.Time, teamUUID, teamName *string) (bool, error) {
	var newlyAnswered bool
	err := tx.QueryRow(ctx, `
		INSERT INTO conversation_day_metrics (
			conversation_href, local_date, outbound_count_day,
			team_uuid, team_name, updated_at
		)
		VALUES ($1, $2::date, 1, $4, $5, now())
		ON CONFLICT (conversation_href, local_date) DO UPDATE SET
			outbound_count_day = conversation_day_metrics.outbound_count_day + 1,
			first_outbound_after_inbound_at_utc = CASE
				WHEN conversation_day_metrics.first_outbound_after_inbound_at_utc IS NULL
				 AND conversation_day_metrics.first_inbound_at_utc IS NOT NULL
				 AND $3 > conversation_day_metrics.first_inbound_at_utc
				THEN $3
				ELSE conversation_day_metrics.first_outbound_after_inbound_at_utc
			END,
			answered_same_day = CASE
				WHEN conversation_day_metrics.first_outbound_after_inbound_at_utc IS NULL
				 AND conversation_day_metrics.first_inbound_at_utc IS NOT NULL
				 AND $3 > conversation_day_metrics.first_inbound_at_utc
				THEN true
				ELSE conversation_day_metrics.answered_same_day
			END,
			updated_at = now()
		RETURNING answered_same_day AND first_outbound_after_inbound_at_utc = $3
	`, conversationHref, localDate, at, teamUUID, teamName).Scan(&newlyAnswered)
	return newlyAnswered, err
}

// ApplyInboundTeam bumps the team day counters for an inbound message.
// conversations counts one per conversation per local day, so it only moves
// when the inbound created the conversation's day row.
func (s *Store) ApplyInboundTeam(ctx context.Context, tx pgx.Tx, teamUUID, teamName, localDate string, firstOfDay bool) error {
	conv := 0
	if firstOfDay {
		conv = 1
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO team_day_metrics (team_uuid, team_name, local_date, inbound_count, conversations, updated_at)
		VALUES ($1, $2, $3::date, 1, $4, now())
		ON CONFLICT (team_uuid, local_date) DO UPDATE SET
			inbound_count = team_day_metrics.inbound_count + 1,
			conversations = team_day_metrics.conversations + $4,
			updated_at = now()
	`, teamUUID, teamName, localDate, conv)
	return err
}

// ApplyOutboundTeam bumps the team day counters for an outbound message.
// answered_count moves at most once per conversation-day (the caller passes
// newlyAnswered from ApplyOutboundDay) and never for a team with no tracked
// inbound that day.
func (s *Store) ApplyOutboundTeam(ctx context.Context, tx pgx.Tx, teamUUID, teamName, localDate string, newlyAnswered bool) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO team_day_metrics (team_uuid, team_name, local_date, outbound_count, updated_at)
		VALUES ($1, $2, $3::date, 1, now())
		ON CONFLICT (team_uuid, local_date) DO UPDATE SET
			outbound_count = team_day_metrics.outbound_count + 1,
			answered_count = CASE
				WHEN $4 AND team_day_metrics.conversations > 0
				THEN team_day_metrics.answered_count + 1
				ELSE team_day_metrics.answered_count
			END,
			updated_at = now()
	`, teamUUID, teamName, localDate, newlyAnswered)
	return err
}

// AnswerLatestOpenCase marks the newest still-open unanswered case whose open
// instant precedes sentAt as answered. Selecting and updating in a single
// statement keeps two concurrent outbound deliveries from racing on the same
// candidate row under read-committed isolation. No matching case is a no-op.
func (s *Store) AnswerLatestOpenCase(ctx context.Context, tx pgx.Tx, conversationHref string, sentAt time.Time) error {
	_, err := tx.Exec(ctx, `
		WITH candidate AS (
			SELECT case_id, opened_received_at_utc
			FROM conversation_cases
			WHERE conversation_href = $1
			  AND is_closed = false
			  AND answered = false
			  AND opened_received_at_utc <= $2
			ORDER BY opened_received_at_utc DESC
			LIMIT 1
		)
		UPDATE conversation_cases
		SET answered = true,
		    first_response_at_utc = $2,
		    first_response_seconds = FLOOR(EXTRACT(EPOCH FROM ($2 - candidate.opened_received_at_utc)))::bigint,
		    updated_at = now()
		FROM candidate
		WHERE conversation_cases.case_id = candidate.case_id
	`, conversationHref, sentAt)
	return err
}

// CloseLatestOpenCase closes the newest open case for the conversation and
// returns false when none is open.
func (s *Store) CloseLatestOpenCase(ctx context.Context, tx pgx.Tx, conversationHref string, closedAt time.Time, payloadClosedAt *time.Time) (bool, error) {
	var caseID string
	err := tx.QueryRow(ctx, `
		WITH candidate AS (
			SELECT case_id, opened_received_at_utc
			FROM conversation_cases
			WHERE conversation_href = $1
			  AND is_closed = false
			ORDER BY opened_received_at_utc DESC
			LIMIT 1
		)
		UPDATE conversation_cases
		SET is_closed = true,
		    closed_received_at_utc = $2,
		    closed_payload_closed_at_utc = $3,
		    duration_seconds = FLOOR(EXTRACT(EPOCH FROM ($2 - candidate.opened_received_at_utc)))::bigint,
		    updated_at = now()
		FROM candidate
		WHERE conversation_cases.case_id = candidate.case_id
		RETURNING conversation_cases.case_id
	`, conversationHref, closedAt, payloadClosedAt).Scan(&caseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
