package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/db"
)

func integrationIngestor(t *testing.T) *Ingestor {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := db.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))

	loc, err := time.LoadLocation("America/Argentina/Tucuman")
	require.NoError(t, err)
	return NewIngestor(store, loc)
}

func setClock(ing *Ingestor, at time.Time) {
	ing.Now = func() time.Time { return at }
}

func openedPayload(href, teamUUID, teamName, agent string) ConversationOpenedPayload {
	return ConversationOpenedPayload{
		Source: "whatsapp",
		Href:   href,
		Contact: OpenedContact{
			Team:         &TeamRef{UUID: teamUUID, Name: teamName},
			AssignedUser: agent,
		},
	}
}

func messagePayload(msgUUID, href, status, createdAt, teamUUID, teamName string) MessageCreatedPayload {
	p := MessageCreatedPayload{
		UUID:      msgUUID,
		Status:    status,
		Channel:   "whatsapp",
		CreatedAt: createdAt,
	}
	p.Contact.ConversationHref = href
	if teamUUID != "" {
		p.Contact.Team = &TeamRef{UUID: teamUUID, Name: teamName}
	}
	return p
}

func TestIntegrationMessageIdempotence(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	teamUUID := uuid.NewString()
	raw := []byte(`{"event":"message_created"}`)

	msg := messagePayload(uuid.NewString(), href, "received", "2024-03-01T12:00:00Z", teamUUID, "Ventas")

	res, err := ing.MessageCreated(ctx, msg, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: true}, res)

	res, err = ing.MessageCreated(ctx, msg, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Deduped: true}, res)

	var inbound int
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT inbound_count_day FROM conversation_day_metrics WHERE conversation_href = $1
	`, href).Scan(&inbound)
	require.NoError(t, err)
	assert.Equal(t, 1, inbound)

	var teamInbound, conversations int
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT inbound_count, conversations FROM team_day_metrics WHERE team_uuid = $1
	`, teamUUID).Scan(&teamInbound, &conversations)
	require.NoError(t, err)
	assert.Equal(t, 1, teamInbound)
	assert.Equal(t, 1, conversations)
}

func TestIntegrationOpenedWindowedDedup(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	opened := openedPayload(href, uuid.NewString(), "Soporte", "")
	raw := []byte(`{"event":"conversation_opened"}`)

	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	setClock(ing, t0)
	res, err := ing.ConversationOpened(ctx, opened, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: true}, res)

	setClock(ing, t0.Add(30*time.Second))
	res, err = ing.ConversationOpened(ctx, opened, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Deduped: true}, res)

	setClock(ing, t0.Add(2*time.Minute))
	res, err = ing.ConversationOpened(ctx, opened, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: true}, res)

	var cases int
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversation_cases WHERE conversation_href = $1
	`, href).Scan(&cases)
	require.NoError(t, err)
	assert.Equal(t, 2, cases)
}

// Full lifecycle: open 10:00:00, inbound 10:00:05, outbound 10:02:05 gives a
// 125s first response; close at 10:10:05 gives a 605s duration.
func TestIntegrationCaseLifecycleScenario(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	teamUUID := uuid.NewString()
	raw := []byte(`{}`)

	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	setClock(ing, t0)
	res, err := ing.ConversationOpened(ctx, openedPayload(href, teamUUID, "Ventas", "agent@example.com"), raw)
	require.NoError(t, err)
	require.Equal(t, Result{Inserted: true}, res)

	res, err = ing.MessageCreated(ctx,
		messagePayload(uuid.NewString(), href, "received", "2024-01-01T10:00:05Z", teamUUID, "Ventas"), raw)
	require.NoError(t, err)
	require.Equal(t, Result{Inserted: true}, res)

	res, err = ing.MessageCreated(ctx,
		messagePayload(uuid.NewString(), href, "sent", "2024-01-01T10:02:05Z", teamUUID, "Ventas"), raw)
	require.NoError(t, err)
	require.Equal(t, Result{Inserted: true}, res)

	var (
		answered             bool
		firstResponseSeconds int64
	)
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT answered, first_response_seconds FROM conversation_cases WHERE conversation_href = $1
	`, href).Scan(&answered, &firstResponseSeconds)
	require.NoError(t, err)
	assert.True(t, answered)
	assert.Equal(t, int64(125), firstResponseSeconds)

	setClock(ing, t0.Add(10*time.Minute+5*time.Second))
	res, err = ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "whatsapp", Href: href}, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: true}, res)

	var (
		isClosed        bool
		durationSeconds int64
	)
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT is_closed, duration_seconds FROM conversation_cases WHERE conversation_href = $1
	`, href).Scan(&isClosed, &durationSeconds)
	require.NoError(t, err)
	assert.True(t, isClosed)
	assert.Equal(t, int64(605), durationSeconds)

	var answeredSameDay bool
	err = ing.Store.Pool.QueryRow(ctx, `
		SELECT answered_same_day FROM conversation_day_metrics WHERE conversation_href = $1
	`, href).Scan(&answeredSameDay)
	require.NoError(t, err)
	assert.True(t, answeredSameDay)
}

// An outbound message answers the newest still-open unanswered case, not an
// older one.
func TestIntegrationOutboundAnswersNewestOpenCase(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	teamUUID := uuid.NewString()
	raw := []byte(`{}`)

	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	setClock(ing, t0)
	_, err := ing.ConversationOpened(ctx, openedPayload(href, teamUUID, "Ventas", ""), raw)
	require.NoError(t, err)

	setClock(ing, t0.Add(2*time.Minute))
	_, err = ing.ConversationOpened(ctx, openedPayload(href, teamUUID, "Ventas", ""), raw)
	require.NoError(t, err)

	_, err = ing.MessageCreated(ctx,
		messagePayload(uuid.NewString(), href, "sent", "2024-01-01T10:03:00Z", teamUUID, "Ventas"), raw)
	require.NoError(t, err)

	rows, err := ing.Store.Pool.Query(ctx, `
		SELECT answered, first_response_seconds
		FROM conversation_cases
		WHERE conversation_href = $1
		ORDER BY opened_received_at_utc
	`, href)
	require.NoError(t, err)
	defer rows.Close()

	type caseRow struct {
		answered bool
		frt      *int64
	}
	var got []caseRow
	for rows.Next() {
		var r caseRow
		require.NoError(t, rows.Scan(&r.answered, &r.frt))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.False(t, got[0].answered, "older case must stay unanswered")
	require.True(t, got[1].answered, "newest case must be answered")
	require.NotNil(t, got[1].frt)
	assert.Equal(t, int64(60), *got[1].frt)
}

func TestIntegrationCloseWithNoOpenCase(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	raw := []byte(`{}`)

	setClock(ing, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	res, err := ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "whatsapp", Href: href}, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNoOpenCase}, res)

	_, err = ing.ConversationOpened(ctx, openedPayload(href, uuid.NewString(), "Ventas", ""), raw)
	require.NoError(t, err)

	res, err = ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "whatsapp", Href: href}, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: true}, res)

	res, err = ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "whatsapp", Href: href}, raw)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNoOpenCase}, res)
}

// N inbound and M outbound for one team on one day: inbound_count=N,
// outbound_count=M, conversations=1, answered_count=1.
func TestIntegrationTeamRollupConsistency(t *testing.T) {
	ing := integrationIngestor(t)
	ctx := context.Background()
	href := "conv-" + uuid.NewString()
	teamUUID := uuid.NewString()
	raw := []byte(`{}`)

	inboundTimes := []string{
		"2024-02-01T12:00:00Z",
		"2024-02-01T12:05:00Z",
		"2024-02-01T12:10:00Z",
	}
	for _, at := range inboundTimes {
		res, err := ing.MessageCreated(ctx,
			messagePayload(uuid.NewString(), href, "received", at, teamUUID, "Soporte"), raw)
		require.NoError(t, err)
		require.Equal(t, Result{Inserted: true}, res)
	}

	outboundTimes := []string{
		"2024-02-01T12:15:00Z",
		"2024-02-01T12:20:00Z",
	}
	for _, at := range outboundTimes {
		res, err := ing.MessageCreated(ctx,
			messagePayload(uuid.NewString(), href, "sent", at, teamUUID, "Soporte"), raw)
		require.NoError(t, err)
		require.Equal(t, Result{Inserted: true}, res)
	}

	var inbound, outbound, conversations, answeredCount int
	err := ing.Store.Pool.QueryRow(ctx, `
		SELECT inbound_count, outbound_count, conversations, answered_count
		FROM team_day_metrics
		WHERE team_uuid = $1
	`, teamUUID).Scan(&inbound, &outbound, &conversations, &answeredCount)
	require.NoError(t, err)

	assert.Equal(t, 3, inbound)
	assert.Equal(t, 2, outbound)
	assert.Equal(t, 1, conversations)
	assert.Equal(t, 1, answeredCount)
}
