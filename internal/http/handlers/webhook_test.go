package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/http/middleware"
	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/service"
)

// Filter and validation outcomes resolve before the store is touched, so
// these tests run without a database.
func newWebhookRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &Handler{
		Ingestor:  service.NewIngestor(nil, time.UTC),
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
	r := gin.New()
	r.POST("/webhooks/callbell", h.Webhook)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/callbell", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookUnsupportedEvent(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{"event":"contact_updated","payload":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported_event") {
		t.Fatalf("expected unsupported_event reason, got %s", w.Body.String())
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `not-json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookOpenedNonWhatsappSource(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{
		"event": "conversation_opened",
		"payload": {"source": "instagram", "href": "conv-1", "contact": {"team": {"uuid": "t1", "name": "Ventas"}}}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "non_whatsapp_source") {
		t.Fatalf("expected non_whatsapp_source, got %s", w.Body.String())
	}
}

func TestWebhookOpenedMissingTeam(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{
		"event": "conversation_opened",
		"payload": {"source": "whatsapp", "href": "conv-1", "contact": {}}
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MISSING_REQUIRED_FIELD") {
		t.Fatalf("expected MISSING_REQUIRED_FIELD, got %s", w.Body.String())
	}
}

func TestWebhookOpenedMissingHref(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{
		"event": "conversation_opened",
		"payload": {"source": "whatsapp", "contact": {"team": {"uuid": "t1", "name": "Ventas"}}}
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INVALID_CONVERSATION_OPENED") {
		t.Fatalf("expected INVALID_CONVERSATION_OPENED, got %s", w.Body.String())
	}
}

func TestWebhookMessageNonWhatsappChannel(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{
		"event": "message_created",
		"payload": {"uuid": "m1", "status": "received", "channel": "sms", "contact": {}}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "non_whatsapp_channel") {
		t.Fatalf("expected non_whatsapp_channel, got %s", w.Body.String())
	}
}

func TestWebhookMessageMissingUUID(t *testing.T) {
	r := newWebhookRouter(t)
	w := postWebhook(t, r, `{
		"event": "message_created",
		"payload": {"status": "received", "channel": "whatsapp", "contact": {}}
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INVALID_MESSAGE") {
		t.Fatalf("expected INVALID_MESSAGE, got %s", w.Body.String())
	}
}

func TestWebhookSecretMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WebhookSecret("s3cret"))
	r.POST("/webhooks/callbell", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req, _ := http.NewRequest(http.MethodPost, "/webhooks/callbell", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", w.Code)
	}

	req, _ = http.NewRequest(http.MethodPost, "/webhooks/callbell", strings.NewReader(`{}`))
	req.Header.Set("X-Webhook-Secret", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with secret, got %d", w.Code)
	}
}
