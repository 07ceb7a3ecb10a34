package widget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/chat-widget/backend/internal/bridge"
	"github.com/zhouzirui/chat-widget/backend/internal/config"
	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/chat-widget/backend/internal/service/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/ratelimit"
	"github.com/zhouzirui/chat-widget/backend/internal/validate"
)

// RequestTimeout bounds a single webhook call.
const RequestTimeout = 30 * time.Second

var (
	ErrRateLimited   = errors.New("action rate limited")
	ErrBusy          = errors.New("a message is already being sent")
	ErrNotConfigured = errors.New("no webhook url configured")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidVote   = errors.New("vote must be up or down")
	ErrNotRetryable  = errors.New("message is not a failed delivery")
	ErrNotVotable    = errors.New("only assistant replies accept feedback")
)

// Gateway delivers chat actions to the webhook.
type Gateway interface {
	SendMessage(ctx context.Context, req chat.SendRequest) (string, error)
	SendFeedback(ctx context.Context, req chat.FeedbackRequest) error
}

// Emitter posts envelopes to the hosting page.
type Emitter interface {
	Emit(env bridge.Envelope) int
}

// Identity provides the current session id.
type Identity interface {
	ID(ctx context.Context) (string, error)
}

// Options wires a Session. Gateway may be nil when no webhook is configured.
type Options struct {
	Config   config.Widget
	Store    *chatservice.Service
	Identity Identity
	Gateway  Gateway
	Bridge   Emitter

	SendCooldown     time.Duration
	FeedbackCooldown time.Duration
	Timeout          time.Duration

	Now       func() time.Time
	NewID     func() string
	AfterFunc AfterFunc
}

// State is the UI-facing view of the session.
type State struct {
	Open     bool   `json:"open"`
	Loading  bool   `json:"loading"`
	Typing   bool   `json:"typing"`
	Draft    string `json:"draft"`
	FocusSeq uint64 `json:"focusSeq"`
}

// Session is one widget instance: it owns the rate-limit slots, the typing
// state and the loading latch, and drives the conversation store.
type Session struct {
	cfg      config.Widget
	store    *chatservice.Service
	identity Identity
	gateway  Gateway
	emitter  Emitter
	timeout  time.Duration
	now      func() time.Time
	newID    func() string

	sendGate     *ratelimit.Cooldown
	feedbackGate *ratelimit.Cooldown
	typing       *Typing

	mu       sync.Mutex
	loading  bool
	open     bool
	draft    string
	focusSeq uint64
}

// NewSession builds a session from opts, filling defaults.
func NewSession(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Timeout <= 0 {
		opts.Timeout = RequestTimeout
	}
	if opts.Bridge == nil {
		opts.Bridge = noopEmitter{}
	}

	s := &Session{
		cfg:          opts.Config,
		store:        opts.Store,
		identity:     opts.Identity,
		gateway:      opts.Gateway,
		emitter:      opts.Bridge,
		timeout:      opts.Timeout,
		now:          opts.Now,
		newID:        opts.NewID,
		sendGate:     ratelimit.NewCooldown(opts.SendCooldown),
		feedbackGate: ratelimit.NewCooldown(opts.FeedbackCooldown),
	}
	s.typing = NewTyping(TypingIdle, opts.AfterFunc, func(isTyping bool) {
		s.emitter.Emit(bridge.Typing(isTyping))
	})
	return s
}

// Config returns the resolved widget configuration.
func (s *Session) Config() config.Widget {
	return s.cfg
}

// Store exposes the conversation store for read access.
func (s *Session) Store() *chatservice.Service {
	return s.store
}

// SessionID returns the current session identifier.
func (s *Session) SessionID(ctx context.Context) (string, error) {
	return s.identity.ID(ctx)
}

// State snapshots the UI-facing flags.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Open:     s.open,
		Loading:  s.loading,
		Typing:   s.typing.Active(),
		Draft:    s.draft,
		FocusSeq: s.focusSeq,
	}
}

// Start restores persisted state and emits open when auto-open is set.
func (s *Session) Start(ctx context.Context) {
	s.store.Load(ctx)
	if s.cfg.AutoOpen {
		s.Open()
	}
}

// Open marks the widget open and tells the hosting page.
func (s *Session) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.emitter.Emit(bridge.Open())
}

// Close marks the widget closed and tells the hosting page.
func (s *Session) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.emitter.Emit(bridge.Close())
}

// Focus handles the inbound open command from the hosting page.
func (s *Session) Focus() {
	s.mu.Lock()
	s.open = true
	s.focusSeq++
	s.mu.Unlock()
}

// Input records the current input text and drives typing notifications.
func (s *Session) Input(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.typing.Input()
}

// Send runs the full send pipeline for text. It returns the finished attempt,
// or an error when the send was dropped before any network call.
func (s *Session) Send(ctx context.Context, text string) (*Attempt, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if !s.sendGate.TryAcquire(s.now()) {
		s.mu.Unlock()
		return nil, ErrRateLimited
	}

	if !s.cfg.HasWebhook() || s.gateway == nil {
		s.mu.Unlock()
		notice := s.systemMessage(NoticeNotConfigured, "")
		if err := s.store.Append(ctx, notice); err != nil {
			log.Printf("[widget] failed to append configuration notice: %v", err)
		}
		return nil, ErrNotConfigured
	}

	result := validate.Input(text)
	if !result.Valid {
		s.mu.Unlock()
		log.Printf("[widget] warning: rejected input: %s", result.Error)
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, result.Error)
	}

	s.loading = true
	s.draft = ""
	s.mu.Unlock()
	defer s.release()

	s.typing.Stop()

	attempt, err := s.begin(ctx, result.Sanitized)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.identity.ID(ctx)
	if err != nil {
		s.fail(ctx, attempt, err)
		return attempt, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.gateway.SendMessage(callCtx, chat.SendRequest{
		Action:    chat.ActionSendMessage,
		SessionID: sessionID,
		MessageID: attempt.User.ID,
		ChatInput: attempt.Input,
	})
	if err != nil {
		log.Printf("[widget] send failed for message=%s: %v", attempt.User.ID, err)
		s.fail(ctx, attempt, err)
		return attempt, nil
	}

	s.resolve(ctx, attempt, reply)
	s.emitter.Emit(bridge.MessageSent(attempt.User))
	return attempt, nil
}

// Retry drops the failed user message and its error notice, then sends the
// original input again through the whole pipeline.
func (s *Session) Retry(ctx context.Context, errorID string) (*Attempt, error) {
	notice, ok := s.store.Find(errorID)
	if !ok {
		return nil, chatservice.ErrMessageNotFound
	}
	if !notice.Failed() {
		return nil, ErrNotRetryable
	}

	if _, err := s.store.RemoveRetryPair(ctx, errorID); err != nil {
		log.Printf("[widget] failed to persist retry removal: %v", err)
	}
	return s.Send(ctx, *notice.FailedInput)
}

// SendFeedback records a vote locally, notifies the hosting page and posts
// it to the webhook on a best-effort basis. A down vote always appends the
// support follow-up.
func (s *Session) SendFeedback(ctx context.Context, messageID string, vote chat.Vote) error {
	if !vote.Valid() {
		return ErrInvalidVote
	}
	target, ok := s.store.Find(messageID)
	if !ok {
		return chatservice.ErrMessageNotFound
	}
	if target.Sender != chat.SenderAI || target.IsSystem {
		return ErrNotVotable
	}
	if !s.feedbackGate.TryAcquire(s.now()) {
		return ErrRateLimited
	}

	if err := s.store.SetFeedback(ctx, messageID, vote); err != nil {
		log.Printf("[widget] failed to persist feedback: %v", err)
	}
	s.emitter.Emit(bridge.Feedback(messageID, vote))

	s.deliverFeedback(ctx, target, vote)

	if vote == chat.VoteDown {
		if err := s.store.Append(ctx, s.systemMessage(NoticeSupport, "")); err != nil {
			log.Printf("[widget] failed to append support notice: %v", err)
		}
	}
	return nil
}

// NewConversation clears the transcript and feedback and rotates the session id.
func (s *Session) NewConversation(ctx context.Context) (string, error) {
	s.typing.Stop()
	s.mu.Lock()
	s.draft = ""
	s.mu.Unlock()
	return s.store.ClearAll(ctx)
}

func (s *Session) deliverFeedback(ctx context.Context, target chat.Message, vote chat.Vote) {
	if s.gateway == nil || !s.cfg.HasWebhook() {
		return
	}
	sessionID, err := s.identity.ID(ctx)
	if err != nil {
		log.Printf("[widget] feedback not delivered, no session id: %v", err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.gateway.SendFeedback(callCtx, chat.FeedbackRequest{
		Action:        chat.ActionFeedback,
		SessionID:     sessionID,
		MessageID:     target.ID,
		UserMessageID: target.ReplyTo,
		FeedbackType:  vote,
	})
	if err != nil {
		log.Printf("[widget] feedback delivery failed for message=%s: %v", target.ID, err)
	}
}

// begin appends the optimistic user message.
func (s *Session) begin(ctx context.Context, input string) (*Attempt, error) {
	user := chat.Message{
		ID:        s.newID(),
		Content:   input,
		Sender:    chat.SenderUser,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.Append(ctx, user); err != nil && !isPersistError(err) {
		return nil, err
	}
	return &Attempt{State: AttemptPending, Input: input, User: user}, nil
}

// resolve appends the ai reply.
func (s *Session) resolve(ctx context.Context, attempt *Attempt, reply string) {
	msg := chat.Message{
		ID:        s.newID(),
		Content:   reply,
		Sender:    chat.SenderAI,
		Timestamp: s.now().UTC(),
		ReplyTo:   attempt.User.ID,
	}
	if err := s.store.Append(ctx, msg); err != nil {
		log.Printf("[widget] failed to append reply: %v", err)
	}
	attempt.State = AttemptResolved
	attempt.Result = &msg
}

// fail appends a retryable error notice carrying the sanitized input.
func (s *Session) fail(ctx context.Context, attempt *Attempt, cause error) {
	msg := s.systemMessage(failureNotice(cause), attempt.Input)
	if err := s.store.Append(ctx, msg); err != nil {
		log.Printf("[widget] failed to append error notice: %v", err)
	}
	attempt.State = AttemptFailed
	attempt.Result = &msg
	attempt.Err = cause
}

func (s *Session) systemMessage(content, failedInput string) chat.Message {
	msg := chat.Message{
		ID:        s.newID(),
		Content:   content,
		Sender:    chat.SenderAI,
		Timestamp: s.now().UTC(),
		IsSystem:  true,
	}
	if failedInput != "" {
		input := failedInput
		msg.FailedInput = &input
	}
	return msg
}

func (s *Session) release() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// isPersistError reports a storage write failure; the in-memory append
// still happened.
func isPersistError(err error) bool {
	return !errors.Is(err, chatservice.ErrDuplicateMessage) &&
		!errors.Is(err, chatservice.ErrUnknownReply) &&
		!errors.Is(err, chatservice.ErrMessageIDRequired)
}

type noopEmitter struct{}

func (noopEmitter) Emit(bridge.Envelope) int { return 0 }
