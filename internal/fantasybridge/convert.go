// Package fantasybridge adapts charm.land/fantasy providers to airport's
// stream.Client contract.
package fantasybridge

import (
	"charm.land/fantasy"
	"github.com/dotcommander/airport/internal/proto"
)

func toFantasyPrompt(input []proto.Message) fantasy.Prompt {
	messages := make([]fantasy.Message, 0, len(input))

	for _, msg := range input {
		if msg.Content == "" {
			continue
		}
		var role fantasy.MessageRole
		switch msg.Role {
		case proto.RoleSystem:
			role = fantasy.MessageRoleSystem
		case proto.RoleUser:
			role = fantasy.MessageRoleUser
		case proto.RoleAssistant:
			role = fantasy.MessageRoleAssistant
		default:
			continue
		}
		messages = append(messages, fantasy.Message{
			Role: role,
			Content: []fantasy.MessagePart{
				fantasy.TextPart{Text: msg.Content},
			},
		})
	}

	return messages
}
