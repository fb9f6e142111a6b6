package service

import (
	"fmt"
	"strings"

	conversationDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/conversation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/generator/domain"
)

const styleGuidance = "Please provide a natural, engaging response that's appropriate for Instagram. " +
	"Keep it concise, friendly, and authentic. Use emojis sparingly if appropriate. " +
	"Avoid any harmful, inappropriate, or offensive content."

// ComposeInstruction builds the system instruction for a generative reply.
func ComposeInstruction(prompt string, channel eventDomain.Channel, maxSentences int) string {
	kind := "DM"
	if channel == eventDomain.ChannelComment {
		kind = "comment"
	}

	parts := []string{}
	if p := strings.TrimSpace(prompt); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts,
		fmt.Sprintf("Context: This is an Instagram %s conversation.", kind),
		styleGuidance,
	)
	if maxSentences > 0 {
		parts = append(parts, fmt.Sprintf("Keep your reply under %d sentences.", maxSentences))
	}

	return strings.Join(parts, "\n\n")
}

// BuildTurns tags transcript rows for the prompt. Messages sent to the
// customer were written by the assistant; everything else is user input.
func BuildTurns(history []conversationDomain.ChatMessage, customerID string) []domain.Turn {
	turns := make([]domain.Turn, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := domain.RoleUser
		if m.ReceiverID == customerID {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.Turn{Role: role, Text: m.Text})
	}
	return turns
}
