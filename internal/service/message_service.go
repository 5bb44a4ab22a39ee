package service

import (
	"context"
	"fmt"
	"strings"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// Message tones a caller may request.
const (
	ToneWarm   = "warm"
	ToneDirect = "direct"
	ToneFormal = "formal"
)

// GeneratedMessage is a drafted outreach message. Fallback is true when the
// canned template was used because the model was unavailable or failed.
type GeneratedMessage struct {
	Message  string `json:"message"`
	Fallback bool   `json:"fallback"`
}

// MessageService drafts short networking messages for a contact and a
// tracked application. Provider failure here never surfaces as an error:
// the user always gets a usable draft.
type MessageService interface {
	Generate(ctx context.Context, userID string, contactID, applicationID int64, tone string) (*GeneratedMessage, error)
}

type messageService struct {
	contactRepo repository.ContactRepository
	appRepo     repository.ApplicationRepository
	llm         LLMClient
	logger      zerolog.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(contactRepo repository.ContactRepository, appRepo repository.ApplicationRepository, llm LLMClient, logger zerolog.Logger) MessageService {
	return &messageService{
		contactRepo: contactRepo,
		appRepo:     appRepo,
		llm:         llm,
		logger:      logger.With().Str("service", "MessageService").Logger(),
	}
}

var toneInstructions = map[string]string{
	ToneWarm:   "Friendly and personable, like reaching out to a peer.",
	ToneDirect: "Brief and to the point. No pleasantries beyond one opener.",
	ToneFormal: "Professional and respectful, suitable for a senior executive.",
}

const messageSystem = `You draft short networking messages for job seekers. Write 3-5 sentences, first person, no subject line, no signature block. Mention the role naturally. Never invent facts about the recipient beyond what is given.`

func (s *messageService) Generate(ctx context.Context, userID string, contactID, applicationID int64, tone string) (*GeneratedMessage, error) {
	instruction, ok := toneInstructions[tone]
	if !ok {
		tone = ToneWarm
		instruction = toneInstructions[ToneWarm]
	}

	app, err := s.appRepo.GetByID(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	contact, err := s.contactRepo.GetByID(ctx, contactID, userID)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"Tone: %s\nRecipient: %s %s, %s at %s\nRole applied for: %s at %s\nContext about recipient: %s",
		instruction,
		contact.FirstName, contact.LastName, contact.Position, contact.Company,
		app.Title, app.Company,
		contact.Reasoning,
	)

	// Higher temperature than the reasoning pipeline: drafts should vary.
	text, err := s.llm.Complete(ctx, CompletionRequest{
		System:      messageSystem,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0.8,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("contact_id", contactID).Msg("Model unavailable, using canned template")
		return &GeneratedMessage{Message: cannedMessage(contact, app), Fallback: true}, nil
	}

	return &GeneratedMessage{Message: strings.TrimSpace(text), Fallback: false}, nil
}

// cannedMessage fills the fallback template so the endpoint degrades to a
// usable draft instead of an error.
func cannedMessage(c *model.Contact, app *model.Application) string {
	name := strings.TrimSpace(c.FirstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s, I recently applied for the %s role at %s and noticed your work as %s. "+
			"I'd love to hear your perspective on the team and what you look for in candidates. "+
			"Would you be open to a brief chat this week?",
		name, app.Title, app.Company, c.Position,
	)
}
