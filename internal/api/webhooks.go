package api

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/webhook"
)

// mailgunPayload is the slice of Mailgun's webhook body this service
// reads. Two shapes arrive in practice: the flat form with message-id,
// event and url at the top level, and the signed-webhook envelope that
// nests everything under event-data with the message id in the message
// headers. Flat fields win when both are present.
type mailgunPayload struct {
	Event     string `json:"event"`
	Recipient string `json:"recipient"`
	URL       string `json:"url"`
	MessageID string `json:"message-id"`

	EventData struct {
		Event     string `json:"event"`
		Recipient string `json:"recipient"`
		URL       string `json:"url"`
		Message   struct {
			Headers struct {
				MessageID string `json:"message-id"`
			} `json:"headers"`
		} `json:"message"`
	} `json:"event-data"`
}

// event flattens the two accepted body shapes into one webhook event.
func (p *mailgunPayload) event() webhook.Event {
	ev := webhook.Event{
		Name:      p.Event,
		MessageID: p.MessageID,
		Recipient: p.Recipient,
		URL:       p.URL,
	}
	if ev.Name == "" {
		ev.Name = p.EventData.Event
	}
	if ev.MessageID == "" {
		ev.MessageID = p.EventData.Message.Headers.MessageID
	}
	if ev.Recipient == "" {
		ev.Recipient = p.EventData.Recipient
	}
	if ev.URL == "" {
		ev.URL = p.EventData.URL
	}
	return ev
}

// MailgunWebhook ingests a delivery event. The response is 200 no matter
// what: Mailgun retries non-2xx responses with backoff, and a permanently
// unprocessable event would otherwise be redelivered forever. The body's
// success flag is the only failure signal.
func (h *Handlers) MailgunWebhook(w http.ResponseWriter, r *http.Request) {
	var payload mailgunPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Warn("unparseable webhook payload", "error", err.Error())
		httputil.OK(w, map[string]bool{"success": false})
		return
	}

	ev := payload.event()
	if ev.MessageID == "" {
		httputil.OK(w, map[string]bool{"success": false})
		return
	}

	if err := h.webhook.Process(r.Context(), ev); err != nil {
		logger.Error("webhook processing failed",
			"event", ev.Name,
			"message_id", ev.MessageID,
			"error", err.Error(),
		)
		httputil.OK(w, map[string]bool{"success": false})
		return
	}
	httputil.OK(w, map[string]bool{"success": true})
}
