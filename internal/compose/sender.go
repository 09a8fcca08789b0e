package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/provider"
)

// SendRequest is a fully composed message ready for the provider.
type SendRequest struct {
	Domain  string // sending domain routed through the provider
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string // derived from HTML when empty
	ReplyTo string
	Headers map[string]string
}

// Sender performs provider sends with the platform's delivery policy.
type Sender struct {
	provider provider.Provider
}

func NewSender(p provider.Provider) *Sender {
	return &Sender{provider: p}
}

// Send submits the message and returns a message id. A provider failure
// does not fail the caller: delivery records must exist even for messages
// the provider rejected, so a synthetic error-<timestamp> id is returned
// and the failure logged. Callers distinguish the two by prefix.
func (s *Sender) Send(ctx context.Context, req SendRequest) string {
	msg := &provider.Message{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
		Headers: req.Headers,
	}
	if msg.Text == "" {
		msg.Text = StripHTML(req.HTML)
	}

	id, err := s.provider.SendMessage(ctx, req.Domain, msg)
	if err != nil {
		id = fmt.Sprintf("error-%d", time.Now().UnixMilli())
		logger.Error("provider send failed",
			"domain", req.Domain,
			"recipient", firstRecipient(req.To),
			"message_id", id,
			"error", err.Error(),
		)
		return id
	}

	logger.Info("message sent",
		"domain", req.Domain,
		"recipient", firstRecipient(req.To),
		"message_id", id,
	)
	return id
}

func firstRecipient(to []string) string {
	if len(to) == 0 {
		return ""
	}
	return to[0]
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	blockEndPattern   = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|br)>|<br\s*/?>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// StripHTML derives a plain-text part from HTML content. Block-level
// closings become newlines so the text keeps its paragraph shape.
func StripHTML(html string) string {
	text := blockEndPattern.ReplaceAllString(html, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = whitespacePattern.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
