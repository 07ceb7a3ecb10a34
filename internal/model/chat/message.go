package chat

import "time"

// Sender identifies who authored a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is the atomic transcript unit persisted verbatim to the storage scope.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	// ReplyTo points at the user message an ai reply answers.
	ReplyTo string `json:"replyTo,omitempty"`
	// IsSystem marks locally injected notices (errors, support follow-ups).
	IsSystem bool `json:"isSystem,omitempty"`
	// FailedInput is set only on delivery-failure notices and carries the text to retry.
	FailedInput *string `json:"failedInput,omitempty"`
}

// Failed reports whether the message is a retryable delivery-failure notice.
func (m Message) Failed() bool {
	return m.FailedInput != nil
}

// Transcript is the ordered message history of one conversation.
type Transcript []Message

// Index returns the position of the message with the given id, or -1.
func (t Transcript) Index(id string) int {
	for i, msg := range t {
		if msg.ID == id {
			return i
		}
	}
	return -1
}
