package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/gorilla/feeds"
	automationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	"github.com/samber/oops"
)

// TranscriptLimit is how many transcript rows a feed shows
const TranscriptLimit = 50

type automationReader interface {
	GetAutomation(ctx context.Context, automationID string) (*automationDomain.Automation, error)
}

type transcriptReader interface {
	Recent(ctx context.Context, automationID string, limit int) ([]conversationDomain.ChatMessage, error)
}

// Service renders automation transcripts as RSS feeds
type Service struct {
	automations automationReader
	transcripts transcriptReader
}

// New creates a new feed service
func New(automations automationReader, transcripts transcriptReader) *Service {
	return &Service{
		automations: automations,
		transcripts: transcripts,
	}
}

// GenerateFeed builds a feed of the latest messages handled by an automation
func (s *Service) GenerateFeed(ctx context.Context, automationID string, baseURL string) (*feeds.Feed, error) {
	automation, err := s.automations.GetAutomation(ctx, automationID)
	if err != nil {
		return nil, oops.With("automation_id", automationID, "context", "automation not found").Wrap(err)
	}

	messages, err := s.transcripts.Recent(ctx, automationID, TranscriptLimit)
	if err != nil {
		return nil, oops.With("automation_id", automationID, "context", "failed to get transcript").Wrap(err)
	}

	updated := automation.CreatedAt
	if len(messages) > 0 {
		updated = messages[0].CreatedAt
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - Auto-reply transcript", automation.Name),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%s", baseURL, automation.ID)},
		Description: fmt.Sprintf("Messages handled by the %q automation", automation.Name),
		Created:     automation.CreatedAt,
		Updated:     updated,
	}

	feed.Items = make([]*feeds.Item, 0, len(messages))
	for _, msg := range messages {
		feed.Items = append(feed.Items, messageToFeedItem(msg, baseURL))
	}

	return feed, nil
}

func messageToFeedItem(msg conversationDomain.ChatMessage, baseURL string) *feeds.Item {
	return &feeds.Item{
		Title:       truncate(msg.Text, 100),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%s#%d", baseURL, msg.AutomationID, msg.ID)},
		Description: msg.Text,
		Content:     fmt.Sprintf("<p>%s</p><p><small>%s → %s</small></p>", html.EscapeString(msg.Text), html.EscapeString(msg.SenderID), html.EscapeString(msg.ReceiverID)),
		Author:      &feeds.Author{Name: msg.SenderID},
		Created:     msg.CreatedAt.In(time.UTC),
		Id:          fmt.Sprintf("%s-%d", msg.AutomationID, msg.ID),
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
