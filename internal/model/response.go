package model

// MessageEvent is the payload of each "message" SSE event: the full current
// state of one log entry.
type MessageEvent struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Language       string `json:"language"`
	MessageCount   int    `json:"message_count"`
	LastActive     int64  `json:"last_active"`
}
