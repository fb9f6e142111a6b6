package domain

import "time"

// Event is the normalized inbound event handed to the dispatcher.
type Event struct {
	Channel           Channel   `json:"channel" validate:"required,oneof=DM COMMENT"`
	PlatformAccountID string    `json:"platform_account_id" validate:"required"`
	SenderID          string    `json:"sender_id" validate:"required"`
	SenderUsername    string    `json:"sender_username,omitempty"`
	ReceiverID        string    `json:"receiver_id" validate:"required"`
	Text              string    `json:"text"`
	MessageID         string    `json:"message_id,omitempty"`
	CommentID         string    `json:"comment_id,omitempty" validate:"required_if=Channel COMMENT"`
	ParentCommentID   string    `json:"parent_comment_id,omitempty"`
	PostID            string    `json:"post_id,omitempty"`
	IsEcho            bool      `json:"is_echo,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

// IsReply reports whether a comment event answers another comment.
func (e Event) IsReply() bool {
	return e.ParentCommentID != ""
}

// Inbound is one item of a webhook delivery, either a DMEvent or a CommentEvent.
type Inbound interface {
	Normalize() Event
	inbound()
}

// DMEvent is an item of the "messaging" family.
type DMEvent struct {
	AccountID   string
	SenderID    string
	RecipientID string
	MessageID   string
	Text        string
	IsEcho      bool
	Timestamp   time.Time
}

func (DMEvent) inbound() {}

func (e DMEvent) Normalize() Event {
	return Event{
		Channel:           ChannelDM,
		PlatformAccountID: e.AccountID,
		SenderID:          e.SenderID,
		ReceiverID:        e.RecipientID,
		Text:              e.Text,
		MessageID:         e.MessageID,
		IsEcho:            e.IsEcho,
		ReceivedAt:        e.Timestamp,
	}
}

// CommentEvent is an item of the "changes" family with field "comments".
type CommentEvent struct {
	AccountID    string
	CommentID    string
	ParentID     string
	MediaID      string
	FromID       string
	FromUsername string
	Text         string
	Timestamp    time.Time
}

func (CommentEvent) inbound() {}

// Normalize maps the commenter to the sender and the business account to the receiver.
func (e CommentEvent) Normalize() Event {
	return Event{
		Channel:           ChannelComment,
		PlatformAccountID: e.AccountID,
		SenderID:          e.FromID,
		SenderUsername:    e.FromUsername,
		ReceiverID:        e.AccountID,
		Text:              e.Text,
		CommentID:         e.CommentID,
		ParentCommentID:   e.ParentID,
		PostID:            e.MediaID,
		IsEcho:            e.FromID != "" && e.FromID == e.AccountID,
		ReceivedAt:        e.Timestamp,
	}
}
