package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Filters and validation run before any store access, so a nil store is safe
// for these paths.
func testIngestor(t *testing.T) *Ingestor {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/Tucuman")
	require.NoError(t, err)
	ing := NewIngestor(nil, loc)
	ing.Now = func() time.Time {
		return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	}
	return ing
}

func TestConversationOpenedIgnoresOtherSources(t *testing.T) {
	ing := testIngestor(t)
	res, err := ing.ConversationOpened(context.Background(), ConversationOpenedPayload{
		Source: "instagram",
		Href:   "conv-1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNonWhatsappSource}, res)
}

func TestConversationOpenedRequiresTeam(t *testing.T) {
	ing := testIngestor(t)
	ctx := context.Background()

	_, err := ing.ConversationOpened(ctx, ConversationOpenedPayload{Source: "whatsapp"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "href", verr.Field)

	_, err = ing.ConversationOpened(ctx, ConversationOpenedPayload{Source: "whatsapp", Href: "conv-1"}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contact.team.uuid", verr.Field)

	_, err = ing.ConversationOpened(ctx, ConversationOpenedPayload{
		Source:  "whatsapp",
		Href:    "conv-1",
		Contact: OpenedContact{Team: &TeamRef{UUID: "t1"}},
	}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contact.team.name", verr.Field)
}

func TestMessageCreatedChannelFilters(t *testing.T) {
	ing := testIngestor(t)
	ctx := context.Background()

	res, err := ing.MessageCreated(ctx, MessageCreatedPayload{
		UUID: "m1", Status: "received", Channel: "sms",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNonWhatsappChannel}, res)

	p := MessageCreatedPayload{UUID: "m2", Status: "received", Channel: "whatsapp"}
	p.Contact.Source = "instagram"
	res, err = ing.MessageCreated(ctx, p, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNonWhatsappSource}, res)
}

func TestMessageCreatedRejectsBadTimestamp(t *testing.T) {
	ing := testIngestor(t)
	_, err := ing.MessageCreated(context.Background(), MessageCreatedPayload{
		UUID: "m1", Status: "received", Channel: "whatsapp", CreatedAt: "not-a-time",
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestConversationClosedValidation(t *testing.T) {
	ing := testIngestor(t)
	ctx := context.Background()

	res, err := ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "telegram", Href: "conv-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Ignored: true, Reason: ReasonNonWhatsappSource}, res)

	_, err = ing.ConversationClosed(ctx, ConversationClosedPayload{Source: "whatsapp"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "href", verr.Field)
}

func TestCaseIDIsDeterministic(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "conv-1::2024-01-01T10:00:00Z", CaseID("conv-1", at))
	assert.Equal(t, CaseID("conv-1", at), CaseID("conv-1", at.In(time.FixedZone("ART", -3*3600))))
}

func TestLocalDateUsesConfiguredTimezone(t *testing.T) {
	ing := testIngestor(t)

	// 01:30 UTC is still the previous evening in Tucuman (UTC-3).
	assert.Equal(t, "2024-01-01", ing.localDate(time.Date(2024, 1, 2, 1, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-02", ing.localDate(time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)))
}
