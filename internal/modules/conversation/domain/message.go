package domain

import "time"

// ChatMessage is one immutable transcript line between a customer and a business account
type ChatMessage struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AutomationID string    `gorm:"type:varchar(36);not null;index" json:"automation_id"`
	SenderID     string    `gorm:"size:64;not null;index:idx_chat_messages_pair" json:"sender_id"`
	ReceiverID   string    `gorm:"size:64;not null;index:idx_chat_messages_pair" json:"receiver_id"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// Exchange is an inbound customer message and the reply sent back.
type Exchange struct {
	AutomationID string
	CustomerID   string
	BusinessID   string
	Inbound      string
	Reply        string
}

// Messages expands the exchange into its two transcript rows, inbound first.
func (e Exchange) Messages(at time.Time) (inbound, outbound *ChatMessage) {
	inbound = &ChatMessage{
		AutomationID: e.AutomationID,
		SenderID:     e.CustomerID,
		ReceiverID:   e.BusinessID,
		Text:         e.Inbound,
		CreatedAt:    at,
	}
	outbound = &ChatMessage{
		AutomationID: e.AutomationID,
		SenderID:     e.BusinessID,
		ReceiverID:   e.CustomerID,
		Text:         e.Reply,
		CreatedAt:    at,
	}
	return inbound, outbound
}
