package model

type CreateConversationRequest struct {
	Language string `json:"language"`
}

// SendMessageRequest is the JSON form of a turn. Multipart requests carry the
// same text field plus an "image" file part.
type SendMessageRequest struct {
	Text string `json:"text" form:"text"`
}

type ReactionRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Type      string `json:"type" binding:"required"`
}

type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

type PreferencesRequest struct {
	Language  string `json:"language"`
	Theme     string `json:"theme"`
	ThemeMode string `json:"theme_mode"`
}
