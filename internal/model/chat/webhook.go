package chat

// Webhook actions understood by the remote endpoint.
const (
	ActionSendMessage = "sendMessage"
	ActionFeedback    = "feedback"
)

// SendRequest is the JSON body posted to the webhook for a chat message.
type SendRequest struct {
	Action    string `json:"action"`
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	ChatInput string `json:"chatInput"`
}

// FeedbackRequest is the JSON body posted to the webhook for a vote.
type FeedbackRequest struct {
	Action        string `json:"action"`
	SessionID     string `json:"sessionId"`
	MessageID     string `json:"messageId"`
	UserMessageID string `json:"userMessageId"`
	FeedbackType  Vote   `json:"feedbackType"`
}
