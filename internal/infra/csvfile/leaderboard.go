package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"trivia-gamemaster/internal/domain"
)

// leaderboard rows carry the question plus three columns per winner slot.
const leaderboardColumns = 1 + 5*3

// LeaderboardWriter renders the accumulated results as a CSV file, one row
// per round, up to five winners per row, unused slots left empty.
type LeaderboardWriter struct {
	path string
}

var _ domain.ResultsSink = (*LeaderboardWriter)(nil)

func NewLeaderboardWriter(path string) *LeaderboardWriter {
	return &LeaderboardWriter{path: path}
}

func (w *LeaderboardWriter) WriteResults(results []domain.RoundResult) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create leaderboard file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"Question"}
	for i := 1; i <= 5; i++ {
		header = append(header,
			fmt.Sprintf("Winner%d", i),
			fmt.Sprintf("Time%d", i),
			fmt.Sprintf("ResponseTime%d", i))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write leaderboard header: %w", err)
	}

	for _, entry := range results {
		row := make([]string, 0, leaderboardColumns)
		row = append(row, entry.QuestionText)
		for _, winner := range entry.Winners {
			row = append(row,
				winner.DisplayName,
				time.Unix(winner.AnsweredAt, 0).Format("15:04:05"),
				fmt.Sprintf("%.1fs", winner.ResponseTime))
		}
		for len(row) < leaderboardColumns {
			row = append(row, "")
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write leaderboard row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush leaderboard: %w", err)
	}
	return nil
}
