package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/service"
)

// @Summary Ingest a messaging webhook delivery
// @Description Accepts conversation_opened, message_created, and conversation_closed events
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string false "Shared webhook secret"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /webhooks/callbell [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 2<<20))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Unreadable body", nil)
		return
	}

	var env service.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Body is not a JSON object", err.Error())
		return
	}
	candidate := env.Candidate(body)

	ctx := c.Request.Context()
	var result service.Result

	switch env.Event {
	case "conversation_opened":
		var p service.ConversationOpenedPayload
		if !h.bindEventPayload(c, candidate, &p, "INVALID_CONVERSATION_OPENED") {
			return
		}
		result, err = h.Ingestor.ConversationOpened(ctx, p, body)

	case "conversation_closed":
		var p service.ConversationClosedPayload
		if !h.bindEventPayload(c, candidate, &p, "INVALID_CONVERSATION_CLOSED") {
			return
		}
		result, err = h.Ingestor.ConversationClosed(ctx, p, body)

	case "", "message_created":
		var p service.MessageCreatedPayload
		if !h.bindEventPayload(c, candidate, &p, "INVALID_MESSAGE") {
			return
		}
		result, err = h.Ingestor.MessageCreated(ctx, p, body)

	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": service.ReasonUnsupportedEvent})
		return
	}

	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeError(c, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", verr.Error(), nil)
			return
		}
		if errors.Is(err, service.ErrInvalidTimestamp) {
			writeError(c, http.StatusBadRequest, "INVALID_TIMESTAMP", err.Error(), nil)
			return
		}
		h.Logger.Error().Err(err).Str("event", env.Event).Msg("webhook ingestion failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to process event", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}

func (h *Handler) bindEventPayload(c *gin.Context, candidate []byte, dst any, code string) bool {
	if err := json.Unmarshal(candidate, dst); err != nil {
		writeError(c, http.StatusBadRequest, code, "Malformed event payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, code, "Invalid event payload", err.Error())
		return false
	}
	return true
}
