package domain

import "errors"

var (
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNoQuestions is returned when a loaded set contains no rounds.
	ErrNoQuestions = errors.New("question set has no questions")
	// ErrNoAnswers is returned when a question has no accepted answers
	// left after normalization.
	ErrNoAnswers = errors.New("question has no accepted answers")
	// ErrGatewayNotConnected is returned when the messaging gateway is not
	// in a connected state at startup.
	ErrGatewayNotConnected = errors.New("gateway not connected")
	// ErrGroupLocked indicates another instance already runs this group.
	ErrGroupLocked = errors.New("group already locked by another instance")
)
