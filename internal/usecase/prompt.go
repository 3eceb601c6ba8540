package usecase

import (
	"strings"

	"talkbot/internal/domain"
	"talkbot/internal/repository"
)

const defaultPersona = "You are TalkBot, a friendly and helpful chatbot with an animated avatar."

func buildPromptMessages(storedPrompt, message string, history []domain.Message) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildSystemPrompt(storedPrompt)},
	}

	for _, m := range history {
		messages = append(messages, historyToPromptMessages(m)...)
	}

	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: message,
	})
	return messages
}

// buildSystemPrompt prefixes the operator's prompt with the formatting
// contract the chat client renders.
func buildSystemPrompt(stored string) string {
	persona := strings.TrimSpace(stored)
	if persona == "" {
		persona = defaultPersona
	}
	return strings.Join([]string{
		"Role:",
		persona,
		"",
		"Formatting Rules:",
		formattingRules(),
	}, "\n")
}

func historyToPromptMessages(m domain.Message) []domain.ChatMessage {
	if m.Status != repository.StatusComplete {
		return nil
	}
	text := strings.TrimSpace(m.Text)
	reply := strings.TrimSpace(m.Reply)
	if text == "" || reply == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: text},
		{Role: domain.RoleAssistant, Content: reply},
	}
}

func formattingRules() string {
	return strings.Join([]string{
		"1) Reply conversationally; your replies may be read aloud.",
		"2) Use **double asterisks** for bold and *single asterisks* for emphasis.",
		"3) Put code in fenced blocks with a language tag, for example ```go.",
		"4) Use `backticks` for short inline code.",
		"5) Do not use HTML or other markdown syntax.",
	}, "\n")
}
