package game

import (
	"sort"

	"trivia-gamemaster/internal/domain"
)

// maxWinners caps how many correct answers are recognized per round.
const maxWinners = 5

// Verdict is the typed outcome of evaluating one inbound message against
// the open round. The caller logs; evaluation itself only mutates state.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictNoRound
	VerdictBeforeOpen
	VerdictLate
	VerdictWrongAnswer
	VerdictDuplicateUser
	VerdictCapReached
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictNoRound:
		return "no round open"
	case VerdictBeforeOpen:
		return "before question"
	case VerdictLate:
		return "late"
	case VerdictWrongAnswer:
		return "wrong answer"
	case VerdictDuplicateUser:
		return "already answered"
	case VerdictCapReached:
		return "winner cap reached"
	}
	return "unknown"
}

// Evaluation carries the verdict plus the fields the caller needs to log it.
type Evaluation struct {
	Verdict  Verdict
	Winner   domain.Winner // populated when Verdict == VerdictAccepted
	CutoffAt int64         // populated when Verdict == VerdictLate
}

// roundState is the mutable per-round state. All access goes through the
// Master's single lock; methods carry the Locked suffix and assume it is
// held.
type roundState struct {
	questionText   string
	accepted       map[string]struct{}
	openedAt       int64
	cutoffAt       int64
	open           bool
	responded      map[string]struct{}
	winners        []domain.Winner
	firstCorrectID string
}

// beginLocked resets all per-round fields and opens the scoring window
// [openedAt, openedAt+durationSec], both ends inclusive.
func (r *roundState) beginLocked(q domain.Question, openedAt, durationSec int64) {
	r.questionText = q.Text
	r.accepted = make(map[string]struct{}, len(q.Answers))
	for _, a := range NormalizeSet(q.Answers) {
		r.accepted[a] = struct{}{}
	}
	r.openedAt = openedAt
	r.cutoffAt = openedAt + durationSec
	r.open = true
	r.responded = make(map[string]struct{})
	r.winners = nil
	r.firstCorrectID = ""
}

// evaluateLocked runs the state-dependent rejection checks in order and
// records the winner when none fires. body must already be normalized and
// non-empty, and msg must carry a timestamp; the stateless checks happen
// before the lock is taken. Both window boundaries are inclusive on
// purpose: a submission stamped exactly at openedAt or cutoffAt scores.
func (r *roundState) evaluateLocked(body string, msg domain.Message) Evaluation {
	if !r.open {
		return Evaluation{Verdict: VerdictNoRound}
	}
	if msg.Timestamp < r.openedAt {
		return Evaluation{Verdict: VerdictBeforeOpen}
	}
	if msg.Timestamp > r.cutoffAt {
		return Evaluation{Verdict: VerdictLate, CutoffAt: r.cutoffAt}
	}
	if _, ok := r.accepted[body]; !ok {
		return Evaluation{Verdict: VerdictWrongAnswer}
	}
	if _, ok := r.responded[msg.SenderID]; ok {
		return Evaluation{Verdict: VerdictDuplicateUser}
	}
	if len(r.winners) >= maxWinners {
		return Evaluation{Verdict: VerdictCapReached}
	}

	if r.firstCorrectID == "" {
		r.firstCorrectID = msg.ID
	}
	r.responded[msg.SenderID] = struct{}{}
	winner := domain.Winner{
		UserID:       msg.SenderID,
		DisplayName:  msg.SenderName,
		AnsweredAt:   msg.Timestamp,
		ResponseTime: float64(msg.Timestamp - r.openedAt),
	}
	r.winners = append(r.winners, winner)
	return Evaluation{Verdict: VerdictAccepted, Winner: winner}
}

// revealLocked returns what the reveal step needs in one consistent read:
// the first accepted message ID (empty if nobody scored) and a sorted copy
// of the accepted answers.
func (r *roundState) revealLocked() (firstCorrectID string, answers []string) {
	answers = make([]string, 0, len(r.accepted))
	for a := range r.accepted {
		answers = append(answers, a)
	}
	sort.Strings(answers)
	return r.firstCorrectID, answers
}

// snapshotLocked freezes the round into a result with an independent copy
// of the winners list.
func (r *roundState) snapshotLocked(questionText string) domain.RoundResult {
	winners := make([]domain.Winner, len(r.winners))
	copy(winners, r.winners)
	return domain.RoundResult{QuestionText: questionText, Winners: winners}
}

// closeLocked ends the scoring window. A closed round is never reopened;
// the next round starts with beginLocked on fresh state.
func (r *roundState) closeLocked() {
	r.open = false
	r.questionText = ""
	r.accepted = nil
	r.openedAt = 0
	r.cutoffAt = 0
	r.responded = nil
	r.winners = nil
	r.firstCorrectID = ""
}
