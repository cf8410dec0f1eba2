package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-gamemaster/internal/domain"
	"trivia-gamemaster/internal/gateway"
)

// Timings holds the fixed delays of the round timeline. None of the waits
// is cancelable; the authoritative cutoff for scoring is the timestamp
// comparison in the validator, not the wall-clock sleep.
type Timings struct {
	QuestionDuration time.Duration
	Grace            time.Duration
	RevealDelay      time.Duration
	NextDelay        time.Duration
}

// DefaultTimings mirrors the production game pacing.
func DefaultTimings() Timings {
	return Timings{
		QuestionDuration: 15 * time.Second,
		Grace:            500 * time.Millisecond,
		RevealDelay:      10 * time.Second,
		NextDelay:        5 * time.Second,
	}
}

// Master drives rounds one at a time over a messaging gateway while the
// gateway's delivery goroutine feeds answers into HandleMessage. One mutex
// guards everything both paths touch: the round state and the append-only
// results list.
type Master struct {
	gw      gateway.Gateway
	groupID string
	timings Timings
	log     *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)

	mu      sync.Mutex
	round   roundState
	results []domain.RoundResult
}

func NewMaster(gw gateway.Gateway, groupID string, timings Timings, log *zap.Logger) *Master {
	return NewMasterWithClock(gw, groupID, timings, log, time.Now, time.Sleep)
}

// NewMasterWithClock is test-only for deterministic timelines.
func NewMasterWithClock(gw gateway.Gateway, groupID string, timings Timings, log *zap.Logger, now func() time.Time, sleep func(time.Duration)) *Master {
	if log == nil {
		log = zap.NewNop()
	}
	return &Master{
		gw:      gw,
		groupID: groupID,
		timings: timings,
		log:     log,
		now:     now,
		sleep:   sleep,
	}
}

// Run plays every question in the set to completion, strictly in order,
// and returns one result per round. The caller registers HandleMessage
// with the gateway before calling Run.
func (m *Master) Run(ctx context.Context, set domain.QuestionSet) ([]domain.RoundResult, error) {
	if len(set.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	total := len(set.Questions)
	for i, q := range set.Questions {
		m.runRound(ctx, i+1, q, i+1 == total)
	}
	m.log.Info("game finished", zap.Int("rounds", total))
	return m.Results(), nil
}

// Results returns a copy of the accumulated leaderboard entries.
func (m *Master) Results() []domain.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RoundResult, len(m.results))
	copy(out, m.results)
	return out
}

// runRound executes one full announce → collect → cutoff → reveal →
// advance cycle. A send failure aborts the remaining timeline steps of
// this round only; the round is still finalized into the results with
// whatever winners were recorded.
func (m *Master) runRound(ctx context.Context, number int, q domain.Question, last bool) {
	receipt, err := m.gw.SendText(ctx, m.groupID, fmt.Sprintf("Q%d: %s", number, q.Text))
	if err != nil {
		m.log.Error("question send failed, skipping round timeline",
			zap.Int("question", number), zap.Error(err))
		m.finalizeRound(q.Text)
		return
	}

	openedAt := receipt.Timestamp
	if openedAt == 0 {
		openedAt = m.now().Unix()
		m.log.Warn("send receipt carried no timestamp, using local clock",
			zap.Int("question", number), zap.Int64("openedAt", openedAt))
	}

	durationSec := int64(m.timings.QuestionDuration / time.Second)
	m.mu.Lock()
	m.round.beginLocked(q, openedAt, durationSec)
	cutoffAt := m.round.cutoffAt
	m.mu.Unlock()

	m.log.Info("question sent",
		zap.Int("question", number),
		zap.Int64("openedAt", openedAt),
		zap.Int64("cutoffAt", cutoffAt))

	m.sleep(m.timings.QuestionDuration)

	ok := m.sendStop(ctx)
	if ok {
		// Absorb messages already in flight at the channel layer. The
		// validator's cutoff check stays authoritative either way.
		m.sleep(m.timings.Grace)
		m.sleep(m.timings.RevealDelay)
		ok = m.sendReveal(ctx)
	}
	if ok && !last {
		m.sleep(m.timings.NextDelay)
		m.sendNext(ctx)
	}

	m.finalizeRound(q.Text)
}

func (m *Master) sendStop(ctx context.Context) bool {
	if _, err := m.gw.SendText(ctx, m.groupID, "STOP"); err != nil {
		m.log.Error("stop send failed", zap.Error(err))
		return false
	}
	m.log.Info("stop sent")
	return true
}

// sendReveal replies to the first correct submission when there is one,
// otherwise broadcasts every accepted answer.
func (m *Master) sendReveal(ctx context.Context) bool {
	m.mu.Lock()
	firstCorrectID, answers := m.round.revealLocked()
	winnerCount := len(m.round.winners)
	m.mu.Unlock()

	if firstCorrectID != "" {
		if err := m.gw.Reply(ctx, m.groupID, "REP", firstCorrectID); err != nil {
			m.log.Error("reveal reply failed", zap.Error(err))
			return false
		}
		m.log.Info("reveal sent", zap.Int("winners", winnerCount))
		return true
	}

	text := "REP: " + strings.Join(answers, " / ")
	if _, err := m.gw.SendText(ctx, m.groupID, text); err != nil {
		m.log.Error("reveal send failed", zap.Error(err))
		return false
	}
	m.log.Info("reveal sent, no correct answers")
	return true
}

func (m *Master) sendNext(ctx context.Context) {
	if _, err := m.gw.SendText(ctx, m.groupID, "NEXT"); err != nil {
		m.log.Error("next send failed", zap.Error(err))
		return
	}
	m.log.Info("next sent")
}

// finalizeRound closes the round and appends its frozen result, exactly
// once per round, winners or not.
func (m *Master) finalizeRound(questionText string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.round.snapshotLocked(questionText)
	m.round.closeLocked()
	m.results = append(m.results, result)
}

// HandleMessage is the gateway delivery callback. It never panics past
// this boundary and never blocks the listener beyond one short critical
// section. Checks that need no round state run before the lock is taken.
func (m *Master) HandleMessage(msg domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("answer evaluation panicked",
				zap.Any("panic", r), zap.String("messageId", msg.ID))
		}
	}()

	if msg.FromMe || !msg.IsGroupMsg || msg.From != m.groupID {
		return
	}
	body := Normalize(msg.Body)
	if body == "" {
		return
	}
	if msg.Timestamp == 0 {
		m.log.Warn("message has no timestamp, skipping",
			zap.String("messageId", msg.ID), zap.String("sender", msg.SenderName))
		return
	}
	if msg.SenderName == "" {
		msg.SenderName = "Someone"
	}

	// The unlock is deferred so the lock survives a panicking
	// evaluation; the recover above then keeps the listener alive.
	ev := func() Evaluation {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.round.evaluateLocked(body, msg)
	}()

	switch ev.Verdict {
	case VerdictAccepted:
		m.log.Info("correct answer",
			zap.String("sender", msg.SenderName),
			zap.String("answer", body),
			zap.Int64("answeredAt", ev.Winner.AnsweredAt),
			zap.Float64("responseTime", ev.Winner.ResponseTime))
	case VerdictLate:
		m.log.Info("late answer",
			zap.String("sender", msg.SenderName),
			zap.String("answer", body),
			zap.Int64("sentAt", msg.Timestamp),
			zap.Int64("cutoffAt", ev.CutoffAt))
	}
}
