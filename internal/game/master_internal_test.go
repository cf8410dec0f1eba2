package game

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"trivia-gamemaster/internal/domain"
)

type nopGateway struct{}

func (nopGateway) SendText(context.Context, string, string) (domain.SendReceipt, error) {
	return domain.SendReceipt{}, nil
}
func (nopGateway) Reply(context.Context, string, string, string) error { return nil }
func (nopGateway) OnMessage(func(domain.Message))                      {}

func TestHandleMessageReleasesLockWhenEvaluationPanics(t *testing.T) {
	m := NewMasterWithClock(nopGateway{}, "g@g.us", DefaultTimings(), zap.NewNop(),
		time.Now, func(time.Duration) {})

	// Forge a half-initialized round: open, matching answer, but a nil
	// responded map, so the accept path panics on insert.
	m.round = roundState{
		open:     true,
		accepted: map[string]struct{}{"paris": {}},
		openedAt: 100,
		cutoffAt: 200,
	}

	m.HandleMessage(domain.Message{
		ID:         "m1",
		From:       "g@g.us",
		Body:       "paris",
		Timestamp:  150,
		IsGroupMsg: true,
		SenderID:   "u1",
		SenderName: "u1",
	})

	// The panic must be recovered and must not leave the lock held.
	done := make(chan struct{})
	go func() {
		m.finalizeRound("q")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock still held after recovered panic")
	}
	if results := m.Results(); len(results) != 1 {
		t.Fatalf("expected round finalized after recovery, got %d results", len(results))
	}
}
