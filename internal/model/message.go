package model

import "time"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// Image is the displayable form of a user attachment.
type Image struct {
	DataURL string `json:"dataUrl"`
	Name    string `json:"name,omitempty"`
}

// Message is one entry of the conversation log.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"isStreaming"`
	Error     bool      `json:"error"`
	Image     *Image    `json:"image,omitempty"`
}

// Clone copies m including its attachment.
func (m Message) Clone() Message {
	if m.Image != nil {
		img := *m.Image
		m.Image = &img
	}
	return m
}

type Reaction string

const (
	ReactionThumbsUp   Reaction = "thumbsUp"
	ReactionThumbsDown Reaction = "thumbsDown"
	ReactionStar       Reaction = "star"
	ReactionRetry      Reaction = "retry"
)

func (r Reaction) Valid() bool {
	switch r {
	case ReactionThumbsUp, ReactionThumbsDown, ReactionStar, ReactionRetry:
		return true
	}
	return false
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	ConversationID string    `json:"conversation_id"`
	Language       string    `json:"language"`
	Ready          bool      `json:"ready"`
	Busy           bool      `json:"busy"`
	Notice         string    `json:"notice,omitempty"`
	Messages       []Message `json:"messages"`
}

// Export is the downloadable transcript. Image bytes are never included.
type Export struct {
	ExportedAt string            `json:"exportedAt"`
	Messages   []ExportedMessage `json:"messages"`
}

type ExportedMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Sender `json:"sender"`
	Timestamp string `json:"timestampISO"`
	Error     bool   `json:"error"`
	HadImage  bool   `json:"hadImage"`
}
