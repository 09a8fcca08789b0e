package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ignite/courier/internal/compose"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httputil"
	"github.com/ignite/courier/internal/store"
)

// sendRequest is the transactional send body.
type sendRequest struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Name    string            `json:"name,omitempty"` // friendly From name, defaults to the project name
	ReplyTo string            `json:"replyTo,omitempty"`
	Data    map[string]any    `json:"data,omitempty"` // template variables
	Headers map[string]string `json:"headers,omitempty"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	ContactID string `json:"contact"`
}

// Send delivers a transactional message from the authenticated project.
// The project must have a verified sending identity. The created email
// record is what later webhook events mutate.
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	project := projectFrom(r.Context())
	if project == nil {
		httputil.Unauthorized(w, "missing project")
		return
	}

	var req sendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.To = strings.TrimSpace(req.To)
	if req.To == "" || req.Subject == "" || req.Body == "" {
		httputil.BadRequest(w, "to, subject, and body are required")
		return
	}
	if project.Email == nil || !project.Verified {
		httputil.Error(w, http.StatusForbidden, "project has no verified sending identity")
		return
	}

	ctx := r.Context()
	contact, err := h.store.GetContactByEmail(ctx, project.ID, req.To)
	if errors.Is(err, store.ErrNotFound) {
		contact = &domain.Contact{ProjectID: project.ID, Email: req.To, Subscribed: true}
		err = h.store.CreateContact(ctx, contact)
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	vars := req.Data
	if vars == nil {
		vars = map[string]any{}
	}
	if _, ok := vars["email"]; !ok {
		vars["email"] = contact.Email
	}
	subject, body := compose.Format(req.Subject, req.Body, vars)
	isHTML := strings.HasPrefix(strings.TrimSpace(strings.ToLower(body)), "<!doctype") ||
		strings.HasPrefix(strings.TrimSpace(strings.ToLower(body)), "<html")
	html := compose.Compile(body, project.Name, isHTML)

	fromName := req.Name
	if fromName == "" {
		fromName = project.Name
	}

	messageID := h.sender.Send(ctx, compose.SendRequest{
		Domain:  project.SendingDomain(),
		From:    fmt.Sprintf("%s <%s>", fromName, *project.Email),
		To:      []string{contact.Email},
		Subject: subject,
		HTML:    html,
		ReplyTo: req.ReplyTo,
		Headers: req.Headers,
	})

	email := &domain.Email{
		MessageID: messageID,
		Status:    domain.EmailPending,
		Subject:   subject,
		ContactID: contact.ID,
	}
	if err := h.store.CreateEmail(ctx, email); err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, sendResponse{
		Success:   true,
		MessageID: messageID,
		ContactID: contact.ID.String(),
	})
}
