package bridge

import (
	"time"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
)

// EventName tags an outbound envelope.
type EventName string

const (
	EventClose       EventName = "close"
	EventOpen        EventName = "open"
	EventMessageSent EventName = "messageSent"
	EventFeedback    EventName = "feedback"
	EventTyping      EventName = "typing"
)

// Envelope is the only shape posted to the hosting page.
type Envelope struct {
	Event EventName `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// MessageData mirrors the sent message.
type MessageData struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    chat.Sender `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	ReplyTo   string      `json:"replyTo,omitempty"`
}

type FeedbackData struct {
	MessageID string    `json:"messageId"`
	Type      chat.Vote `json:"type"`
}

type TypingData struct {
	IsTyping bool `json:"isTyping"`
}

func Close() Envelope { return Envelope{Event: EventClose} }

func Open() Envelope { return Envelope{Event: EventOpen} }

func MessageSent(msg chat.Message) Envelope {
	return Envelope{Event: EventMessageSent, Data: MessageData{
		ID:        msg.ID,
		Content:   msg.Content,
		Sender:    msg.Sender,
		Timestamp: msg.Timestamp,
		ReplyTo:   msg.ReplyTo,
	}}
}

func Feedback(messageID string, vote chat.Vote) Envelope {
	return Envelope{Event: EventFeedback, Data: FeedbackData{MessageID: messageID, Type: vote}}
}

func Typing(isTyping bool) Envelope {
	return Envelope{Event: EventTyping, Data: TypingData{IsTyping: isTyping}}
}

// Command is an inbound message from the hosting page.
type Command struct {
	Action string `json:"action"`
}

// ActionOpen asks the widget to focus its input.
const ActionOpen = "open"
