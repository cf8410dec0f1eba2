package game_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"trivia-gamemaster/internal/domain"
	"trivia-gamemaster/internal/game"
)

const (
	testGroup = "123-456@g.us"
	baseT     = int64(1_700_000_000)
)

type fakeReply struct {
	text     string
	quotedID string
}

type fakeGateway struct {
	mu       sync.Mutex
	receiptT int64
	nextID   int
	sent     []string
	replies  []fakeReply
	fail     map[string]bool // send fails when text starts with a key
}

func (g *fakeGateway) SendText(_ context.Context, _, text string) (domain.SendReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for prefix := range g.fail {
		if strings.HasPrefix(text, prefix) {
			return domain.SendReceipt{}, errors.New("send failed")
		}
	}
	g.nextID++
	g.sent = append(g.sent, text)
	return domain.SendReceipt{MessageID: fmt.Sprintf("out-%d", g.nextID), Timestamp: g.receiptT}, nil
}

func (g *fakeGateway) Reply(_ context.Context, _, text, quotedID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, fakeReply{text: text, quotedID: quotedID})
	return nil
}

func (g *fakeGateway) OnMessage(func(domain.Message)) {}

func (g *fakeGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sent))
	copy(out, g.sent)
	return out
}

func groupMsg(id, sender, body string, ts int64) domain.Message {
	return domain.Message{
		ID:         id,
		From:       testGroup,
		Body:       body,
		Timestamp:  ts,
		IsGroupMsg: true,
		SenderID:   sender,
		SenderName: sender,
	}
}

// newTestMaster wires a master with no-op sleeps that inject the given
// messages during each round's collect window.
func newTestMaster(gw *fakeGateway, perRound [][]domain.Message) *game.Master {
	timings := game.DefaultTimings()
	var master *game.Master
	round := 0
	sleep := func(d time.Duration) {
		if d != timings.QuestionDuration {
			return
		}
		if round < len(perRound) {
			for _, m := range perRound[round] {
				master.HandleMessage(m)
			}
		}
		round++
	}
	now := func() time.Time { return time.Unix(baseT, 0) }
	master = game.NewMasterWithClock(gw, testGroup, timings, zap.NewNop(), now, sleep)
	return master
}

func TestRunPlaysFullTimeline(t *testing.T) {
	gw := &fakeGateway{receiptT: baseT}
	master := newTestMaster(gw, [][]domain.Message{
		{groupMsg("in-1", "alice", "Paris!", baseT+5)},
		nil,
	})

	set := domain.QuestionSet{ID: "default", Questions: []domain.Question{
		{Text: "Capital of France?", Answers: []string{"paris", "france"}},
		{Text: "What is 2+2?", Answers: []string{"4", "four"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"Q1: Capital of France?", "STOP", "NEXT", "Q2: What is 2+2?", "STOP", "REP: 4 / four"}
	got := gw.sentTexts()
	if len(got) != len(want) {
		t.Fatalf("expected sends %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("send %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if len(gw.replies) != 1 || gw.replies[0].text != "REP" || gw.replies[0].quotedID != "in-1" {
		t.Fatalf("expected one REP reply quoting in-1, got %+v", gw.replies)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0].Winners) != 1 {
		t.Fatalf("expected 1 winner in round 1, got %d", len(results[0].Winners))
	}
	w := results[0].Winners[0]
	if w.UserID != "alice" || w.ResponseTime != 5.0 || w.AnsweredAt != baseT+5 {
		t.Fatalf("unexpected winner %+v", w)
	}
	if len(results[1].Winners) != 0 {
		t.Fatalf("expected no winners in round 2, got %d", len(results[1].Winners))
	}
}

func TestReceiptWithoutTimestampFallsBackToClock(t *testing.T) {
	gw := &fakeGateway{receiptT: 0}
	master := newTestMaster(gw, [][]domain.Message{
		{groupMsg("in-1", "bob", "four", baseT+3)},
	})

	set := domain.QuestionSet{Questions: []domain.Question{
		{Text: "What is 2+2?", Answers: []string{"4", "four"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results[0].Winners) != 1 {
		t.Fatalf("expected winner via clock fallback, got %+v", results[0].Winners)
	}
	if rt := results[0].Winners[0].ResponseTime; rt != 3.0 {
		t.Fatalf("expected response time 3.0, got %v", rt)
	}
}

func TestStopFailureStillRecordsRound(t *testing.T) {
	gw := &fakeGateway{receiptT: baseT, fail: map[string]bool{"STOP": true}}
	master := newTestMaster(gw, [][]domain.Message{
		{groupMsg("in-1", "carol", "paris", baseT+2)},
	})

	set := domain.QuestionSet{Questions: []domain.Question{
		{Text: "Capital of France?", Answers: []string{"paris"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(results) != 1 || len(results[0].Winners) != 1 {
		t.Fatalf("expected recorded round with winner, got %+v", results)
	}
	// Reveal and advance are skipped after the failed send.
	for _, text := range gw.sentTexts() {
		if strings.HasPrefix(text, "REP") || text == "NEXT" {
			t.Fatalf("expected no sends after failure, got %q", text)
		}
	}
	if len(gw.replies) != 0 {
		t.Fatalf("expected no replies, got %+v", gw.replies)
	}
}

func TestAnnounceFailureRecordsEmptyRound(t *testing.T) {
	gw := &fakeGateway{receiptT: baseT, fail: map[string]bool{"Q1:": true}}
	master := newTestMaster(gw, nil)

	set := domain.QuestionSet{Questions: []domain.Question{
		{Text: "Capital of France?", Answers: []string{"paris"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result despite announce failure, got %d", len(results))
	}
	if len(results[0].Winners) != 0 {
		t.Fatalf("expected empty round, got %+v", results[0].Winners)
	}
	if len(gw.sentTexts()) != 0 {
		t.Fatalf("expected no successful sends, got %v", gw.sentTexts())
	}
}

func TestIgnoresSelfNonGroupAndForeignMessages(t *testing.T) {
	self := groupMsg("in-1", "bot", "paris", baseT+1)
	self.FromMe = true
	direct := groupMsg("in-2", "dave", "paris", baseT+2)
	direct.IsGroupMsg = false
	foreign := groupMsg("in-3", "erin", "paris", baseT+3)
	foreign.From = "other@g.us"
	unstamped := groupMsg("in-4", "frank", "paris", 0)
	blank := groupMsg("in-5", "grace", "?!.", baseT+4)

	gw := &fakeGateway{receiptT: baseT}
	master := newTestMaster(gw, [][]domain.Message{
		{self, direct, foreign, unstamped, blank},
	})

	set := domain.QuestionSet{Questions: []domain.Question{
		{Text: "Capital of France?", Answers: []string{"paris"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results[0].Winners) != 0 {
		t.Fatalf("expected no winners, got %+v", results[0].Winners)
	}
	// With nobody scoring, the reveal lists the accepted answers.
	var revealed bool
	for _, text := range gw.sentTexts() {
		if text == "REP: paris" {
			revealed = true
		}
	}
	if !revealed {
		t.Fatalf("expected answer reveal, sends were %v", gw.sentTexts())
	}
}

func TestConcurrentSubmissionsKeepInvariants(t *testing.T) {
	gw := &fakeGateway{receiptT: baseT}
	timings := game.DefaultTimings()
	var master *game.Master
	sleep := func(d time.Duration) {
		if d != timings.QuestionDuration {
			return
		}
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sender := fmt.Sprintf("u%d", i)
				master.HandleMessage(groupMsg(fmt.Sprintf("in-%d", i), sender, "paris", baseT+1))
			}(i)
		}
		wg.Wait()
	}
	master = game.NewMasterWithClock(gw, testGroup, timings, zap.NewNop(),
		func() time.Time { return time.Unix(baseT, 0) }, sleep)

	set := domain.QuestionSet{Questions: []domain.Question{
		{Text: "Capital of France?", Answers: []string{"paris"}},
	}}
	results, err := master.Run(context.Background(), set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	winners := results[0].Winners
	if len(winners) != 5 {
		t.Fatalf("expected winner cap of 5, got %d", len(winners))
	}
	seen := make(map[string]struct{})
	for _, w := range winners {
		if _, dup := seen[w.UserID]; dup {
			t.Fatalf("duplicate user %s in winners", w.UserID)
		}
		seen[w.UserID] = struct{}{}
	}
}
