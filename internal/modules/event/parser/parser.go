// Package parser turns Instagram webhook deliveries into typed inbound events.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const commentsField = "comments"

type payload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []messaging `json:"messaging"`
	Changes   []change    `json:"changes"`
}

type participant struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type messaging struct {
	Sender    participant `json:"sender"`
	Recipient participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

type change struct {
	Field string `json:"field"`
	Value struct {
		ID       string      `json:"id"`
		ParentID string      `json:"parent_id"`
		Text     string      `json:"text"`
		From     participant `json:"from"`
		Media    struct {
			ID string `json:"id"`
		} `json:"media"`
	} `json:"value"`
}

// Parse decodes a webhook body into one Inbound per messaging or comment item.
// Items of other families are skipped; an unrecognized body yields no events.
// Only a body that is not valid JSON is an error.
func Parse(body []byte) ([]domain.Inbound, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, oops.With("context", "decoding webhook body").Wrap(fmt.Errorf("%w: %w", errors.ErrMalformedPayload, err))
	}

	var events []domain.Inbound
	for _, e := range p.Entry {
		received := unixTime(e.Time)

		for _, m := range e.Messaging {
			if m.Message == nil {
				// reactions, reads and postbacks carry no message
				continue
			}
			accountID := e.ID
			if accountID == "" {
				accountID = lo.Ternary(m.Message.IsEcho, m.Sender.ID, m.Recipient.ID)
			}
			events = append(events, domain.DMEvent{
				AccountID:   accountID,
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				MessageID:   m.Message.MID,
				Text:        m.Message.Text,
				IsEcho:      m.Message.IsEcho,
				Timestamp:   lo.Ternary(m.Timestamp > 0, unixMillis(m.Timestamp), received),
			})
		}

		for _, c := range e.Changes {
			if !strings.EqualFold(c.Field, commentsField) && c.Field != "" {
				continue
			}
			events = append(events, domain.CommentEvent{
				AccountID:    e.ID,
				CommentID:    c.Value.ID,
				ParentID:     c.Value.ParentID,
				MediaID:      c.Value.Media.ID,
				FromID:       c.Value.From.ID,
				FromUsername: c.Value.From.Username,
				Text:         c.Value.Text,
				Timestamp:    received,
			})
		}
	}

	return events, nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}

func unixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
