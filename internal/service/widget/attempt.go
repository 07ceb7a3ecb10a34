package widget

import (
	"errors"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/webhook"
)

// AttemptState is the phase of one send.
type AttemptState string

const (
	AttemptPending  AttemptState = "pending"
	AttemptResolved AttemptState = "resolved"
	AttemptFailed   AttemptState = "failed"
)

// Notice copy injected into the transcript.
const (
	NoticeNotConfigured = "Chat is not configured. Please provide a webhook URL."
	NoticeTimeout       = "The request timed out. Please try again."
	NoticeFailed        = "Sorry, something went wrong. Please try again."
	NoticeSupport       = "Sorry this wasn't helpful. If you need more help, please contact our support team."
)

// Attempt tracks one send from its optimistic user message to its outcome.
type Attempt struct {
	State  AttemptState  `json:"state"`
	Input  string        `json:"input"`
	User   chat.Message  `json:"user"`
	Result *chat.Message `json:"result,omitempty"`
	Err    error         `json:"-"`
}

// failureNotice picks the copy for a delivery failure.
func failureNotice(err error) string {
	if errors.Is(err, webhook.ErrTimeout) {
		return NoticeTimeout
	}
	return NoticeFailed
}
