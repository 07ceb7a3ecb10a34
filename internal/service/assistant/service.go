package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

// HistoryLimit caps the turns replayed to the model per session.
const HistoryLimit = 10

const defaultSystemPrompt = "You are a friendly support assistant embedded in a website chat widget. " +
	"Answer briefly and clearly. Markdown is allowed."

// Turn is one stored exchange entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service answers webhook messages, through an eino chain when a chat model
// is configured and by echoing the input otherwise.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	history      storage.Scope
	systemPrompt string
}

// NewService compiles the reply chain. A nil chatModel selects echo mode.
func NewService(ctx context.Context, chatModel model.ChatModel, history storage.Scope, systemPrompt string) (*Service, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	svc := &Service{history: history, systemPrompt: systemPrompt}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Echo reports whether replies are produced without a model.
func (s *Service) Echo() bool {
	return s.chain == nil
}

// Reply answers one chat input for sessionID and records the exchange.
func (s *Service) Reply(ctx context.Context, sessionID, input string) (string, error) {
	if s.chain == nil {
		return "You said: " + input, nil
	}

	turns, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		log.Printf("[assistant] history unavailable for session=%s: %v", sessionID, err)
	}

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  s.systemPrompt,
		"history": toSchema(turns),
		"query":   input,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run reply chain: %w", err)
	}

	turns = append(turns, Turn{Role: "user", Content: input}, Turn{Role: "assistant", Content: response.Content})
	if err := s.saveHistory(ctx, sessionID, turns); err != nil {
		log.Printf("[assistant] failed to save history for session=%s: %v", sessionID, err)
	}

	log.Printf("[assistant] generated reply for session=%s, length=%d", sessionID, len(response.Content))
	return response.Content, nil
}

// RecordFeedback logs a vote from the widget.
func (s *Service) RecordFeedback(req chat.FeedbackRequest) {
	log.Printf("[assistant] feedback session=%s message=%s userMessage=%s vote=%s",
		req.SessionID, req.MessageID, req.UserMessageID, req.FeedbackType)
}

// History returns the stored turns for sessionID.
func (s *Service) History(ctx context.Context, sessionID string) ([]Turn, error) {
	return s.loadHistory(ctx, sessionID)
}

func (s *Service) loadHistory(ctx context.Context, sessionID string) ([]Turn, error) {
	if s.history == nil {
		return nil, nil
	}
	raw, ok, err := s.history.Get(ctx, historyKey(sessionID))
	if err != nil || !ok {
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}

func (s *Service) saveHistory(ctx context.Context, sessionID string, turns []Turn) error {
	if s.history == nil {
		return nil
	}
	if len(turns) > HistoryLimit {
		turns = turns[len(turns)-HistoryLimit:]
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.history.Set(ctx, historyKey(sessionID), raw)
}

func historyKey(sessionID string) string {
	return "assistant_history:" + sessionID
}

func toSchema(turns []Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case "user":
			history = append(history, schema.UserMessage(turn.Content))
		case "assistant":
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
