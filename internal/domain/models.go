package domain

import "context"

// Question is one trivia round's content: the prompt and the set of
// accepted answers, normalized at load time.
type Question struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

// QuestionSet is an ordered game script identified by ID.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Message is an inbound chat message as delivered by the gateway.
// Timestamp is a Unix timestamp in seconds; 0 means the gateway did not
// attach one.
type Message struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	Body       string `json:"body"`
	Timestamp  int64  `json:"t"`
	FromMe     bool   `json:"fromMe"`
	IsGroupMsg bool   `json:"isGroupMsg"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
}

// SendReceipt acknowledges an outbound send. Timestamp is the server-side
// send time in Unix seconds and is 0 when the gateway could not provide one.
type SendReceipt struct {
	MessageID string
	Timestamp int64
}

// Winner records one accepted submission for a round, in recognition order.
type Winner struct {
	UserID       string  `json:"userId"`
	DisplayName  string  `json:"displayName"`
	AnsweredAt   int64   `json:"answeredAt"`
	ResponseTime float64 `json:"responseTime"`
}

// RoundResult is the frozen outcome of one completed round. Winners is an
// independent snapshot, never the round's live slice.
type RoundResult struct {
	QuestionText string   `json:"questionText"`
	Winners      []Winner `json:"winners"`
}

// QuestionSource supplies the ordered rounds for a game run.
type QuestionSource interface {
	GetQuestionSet(ctx context.Context, setID string) (QuestionSet, error)
}

// ResultsSink consumes the accumulated leaderboard at the end of a run.
type ResultsSink interface {
	WriteResults(results []RoundResult) error
}
