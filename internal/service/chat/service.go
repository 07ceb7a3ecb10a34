package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

// Storage keys for the persisted collections.
const (
	MessagesKey = "chat_messages"
	FeedbackKey = "chat_feedback"
)

var (
	ErrMessageIDRequired = errors.New("message id is required")
	ErrDuplicateMessage  = errors.New("message id already in transcript")
	ErrUnknownReply      = errors.New("replyTo does not reference an earlier message")
	ErrMessageNotFound   = errors.New("message not found")
)

// SessionResetter regenerates the session identity on a new conversation.
type SessionResetter interface {
	Reset(ctx context.Context) (string, error)
}

// Service owns the transcript and feedback map and writes both through to
// the storage scope after every mutation. A failed write is reported but the
// in-memory mutation is kept.
type Service struct {
	mu       sync.RWMutex
	scope    storage.Scope
	sessions SessionResetter
	messages chat.Transcript
	feedback chat.FeedbackMap
}

// NewService creates an empty store; call Load to restore persisted state.
func NewService(scope storage.Scope, sessions SessionResetter) *Service {
	return &Service{
		scope:    scope,
		sessions: sessions,
		messages: make(chat.Transcript, 0, 16),
		feedback: make(chat.FeedbackMap),
	}
}

// Load restores both collections. Missing or corrupt entries yield empty
// collections and are only logged.
func (s *Service) Load(ctx context.Context) {
	messages := make(chat.Transcript, 0, 16)
	if raw, ok, err := s.scope.Get(ctx, MessagesKey); err != nil {
		log.Printf("[chat] failed to read transcript, starting empty: %v", err)
	} else if ok {
		if err := json.Unmarshal(raw, &messages); err != nil {
			log.Printf("[chat] corrupt transcript in storage, starting empty: %v", err)
			messages = make(chat.Transcript, 0, 16)
		}
	}

	feedback := make(chat.FeedbackMap)
	if raw, ok, err := s.scope.Get(ctx, FeedbackKey); err != nil {
		log.Printf("[chat] failed to read feedback, starting empty: %v", err)
	} else if ok {
		if err := json.Unmarshal(raw, &feedback); err != nil || feedback == nil {
			log.Printf("[chat] corrupt feedback in storage, starting empty: %v", err)
			feedback = make(chat.FeedbackMap)
		}
	}

	s.mu.Lock()
	s.messages = messages
	s.feedback = feedback
	s.mu.Unlock()
}

// Transcript returns a copy of the current transcript.
func (s *Service) Transcript() chat.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(chat.Transcript, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Feedback returns a copy of the current feedback map.
func (s *Service) Feedback() chat.FeedbackMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedback.Clone()
}

// Find looks up a message by id.
func (s *Service) Find(id string) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.messages.Index(id); idx >= 0 {
		return s.messages[idx], true
	}
	return chat.Message{}, false
}

// Append adds message to the end of the transcript.
func (s *Service) Append(ctx context.Context, message chat.Message) error {
	if message.ID == "" {
		return ErrMessageIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.messages.Index(message.ID) >= 0 {
		return ErrDuplicateMessage
	}
	if message.ReplyTo != "" && s.messages.Index(message.ReplyTo) < 0 {
		return ErrUnknownReply
	}

	s.messages = append(s.messages, message)
	return s.persistMessagesLocked(ctx)
}

// RemoveRetryPair deletes the error notice with the given id together with
// the message right before it. It reports false and leaves the transcript
// untouched when the notice is missing or first.
func (s *Service) RemoveRetryPair(ctx context.Context, errorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.messages.Index(errorID)
	if idx <= 0 {
		return false, nil
	}

	next := make(chat.Transcript, 0, len(s.messages)-2)
	next = append(next, s.messages[:idx-1]...)
	next = append(next, s.messages[idx+1:]...)
	s.messages = next
	return true, s.persistMessagesLocked(ctx)
}

// SetFeedback records vote for messageID, replacing any earlier vote.
func (s *Service) SetFeedback(ctx context.Context, messageID string, vote chat.Vote) error {
	if messageID == "" {
		return ErrMessageIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback[messageID] = vote
	return s.persistFeedbackLocked(ctx)
}

// ClearAll empties both collections, erases their persisted copies and
// resets the session identity. It returns the new session id.
func (s *Service) ClearAll(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.messages = make(chat.Transcript, 0, 16)
	s.feedback = make(chat.FeedbackMap)

	var errs []error
	if err := s.scope.Delete(ctx, MessagesKey); err != nil {
		errs = append(errs, fmt.Errorf("erase transcript: %w", err))
	}
	if err := s.scope.Delete(ctx, FeedbackKey); err != nil {
		errs = append(errs, fmt.Errorf("erase feedback: %w", err))
	}
	s.mu.Unlock()

	var sessionID string
	if s.sessions != nil {
		id, err := s.sessions.Reset(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		sessionID = id
	}

	return sessionID, errors.Join(errs...)
}

func (s *Service) persistMessagesLocked(ctx context.Context) error {
	data, err := json.Marshal(s.messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := s.scope.Set(ctx, MessagesKey, data); err != nil {
		log.Printf("[chat] failed to persist transcript: %v", err)
		return fmt.Errorf("persist transcript: %w", err)
	}
	return nil
}

func (s *Service) persistFeedbackLocked(ctx context.Context) error {
	data, err := json.Marshal(s.feedback)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	if err := s.scope.Set(ctx, FeedbackKey, data); err != nil {
		log.Printf("[chat] failed to persist feedback: %v", err)
		return fmt.Errorf("persist feedback: %w", err)
	}
	return nil
}
