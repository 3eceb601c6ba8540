package domain

// Message is a single persisted chat turn: what the user sent and what the
// assistant replied.
type Message struct {
	PK     string
	SK     string
	UserID string
	Text   string
	Reply  string
	Status string
	TTL    int64
}

// ConversationMeta stores aggregate per-user conversation state.
type ConversationMeta struct {
	PK           string
	SK           string
	UserID       string
	LastActivity string
	Turns        int
	TTL          int64
}
