package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/prnotify/internal/notify"
	"github.com/prnotify/internal/webhookutils"
)

// processingTimeout bounds one event's background processing, covering every
// API re-fetch and the delivery fan-out.
const processingTimeout = 2 * time.Minute

// handleWebhook is the webhook entry point. It verifies the delivery
// signature, parses the event, and acks immediately; the engine runs on its
// own goroutine so GitHub always receives a timely acknowledgment regardless
// of the notification outcome.
func (s *Server) handleWebhook(c echo.Context) error {
	// Read headers for event detection
	headers := make(map[string]string)
	for key, values := range c.Request().Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read webhook body")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	sig, _ := webhookutils.GetHeaderCaseInsensitive(headers, "X-Hub-Signature-256")
	if !VerifySignature(s.webhookSecret, body, sig) {
		log.Warn().Msg("Rejected webhook with invalid signature")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid signature",
		})
	}

	eventType := webhookutils.EventType(headers)
	if eventType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing X-GitHub-Event header",
		})
	}

	deliveryID := webhookutils.DeliveryID(headers)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	// GitHub pings every new hook; there is nothing to notify about.
	if eventType == "ping" {
		return c.JSON(http.StatusOK, map[string]string{"status": "pong"})
	}

	ev, err := notify.ParseEvent(deliveryID, eventType, body)
	if err != nil {
		log.Error().Err(err).Str("delivery", deliveryID).Msg("Failed to parse webhook payload")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse webhook payload",
		})
	}

	log.Info().
		Str("delivery", deliveryID).
		Str("event", eventType).
		Str("action", ev.Action).
		Int("bytes", len(body)).
		Msg("Webhook accepted")

	go func() {
		// Echo's Recover middleware only shields the request goroutine; a
		// panic here would otherwise take down the whole process.
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("delivery", deliveryID).
					Str("event", eventType).
					Msg("Recovered from panic while processing webhook event")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), processingTimeout)
		defer cancel()
		s.engine.Handle(ctx, ev)
	}()

	return c.JSON(http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"delivery": deliveryID,
	})
}
