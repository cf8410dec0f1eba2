package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"trivia-gamemaster/internal/domain"
	"trivia-gamemaster/internal/game"
)

// Loader reads a game script from a CSV file with header
// "question,answers", answers pipe-delimited within the field:
//
//	question,answers
//	"What is 2+2?","4|four"
//
// Answer tokens are normalized on load; empty tokens are discarded.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("read header: %w", err)
	}
	questionCol, answersCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "question":
			questionCol = i
		case "answers":
			answersCol = i
		}
	}
	if questionCol < 0 || answersCol < 0 {
		return domain.QuestionSet{}, fmt.Errorf("questions file %s: missing question/answers columns", l.path)
	}

	var questions []domain.Question
	for row := 2; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.QuestionSet{}, fmt.Errorf("questions file %s row %d: %w", l.path, row, err)
		}
		if len(rec) <= questionCol || len(rec) <= answersCol {
			return domain.QuestionSet{}, fmt.Errorf("questions file %s row %d: too few columns", l.path, row)
		}
		text := strings.TrimSpace(rec[questionCol])
		answers := game.NormalizeSet(strings.Split(rec[answersCol], "|"))
		if len(answers) == 0 {
			return domain.QuestionSet{}, fmt.Errorf("questions file %s row %d: %w", l.path, row, domain.ErrNoAnswers)
		}
		questions = append(questions, domain.Question{Text: text, Answers: answers})
	}
	if len(questions) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("questions file %s: %w", l.path, domain.ErrNoQuestions)
	}
	return domain.QuestionSet{ID: setID, Questions: questions}, nil
}
