package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-gamemaster/internal/config"
	"trivia-gamemaster/internal/domain"
	"trivia-gamemaster/internal/game"
	"trivia-gamemaster/internal/gateway/ws"
	"trivia-gamemaster/internal/infra/csvfile"
	"trivia-gamemaster/internal/infra/memory"
	pgloader "trivia-gamemaster/internal/infra/postgres"
	redisinfra "trivia-gamemaster/internal/infra/redis"
)

// NewPlayCmd builds the CLI subcommand that runs a full game.
func NewPlayCmd(configPath, group *string) *cobra.Command {
	var saveCSV bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the trivia game in the configured group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGame(cmd.Context(), *configPath, *group, saveCSV)
		},
	}
	cmd.Flags().BoolVar(&saveCSV, "save", true, "write the leaderboard CSV at the end of the run")
	return cmd
}

func runGame(ctx context.Context, configPath, groupFlag string, saveCSV bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	group := groupFlag
	if group == "" {
		group = cfg.Gateway.Group
	}
	if group == "" {
		return fmt.Errorf("no group configured (set gateway.group or --group)")
	}
	session := cfg.Gateway.Session
	if session == "" {
		session = "trivia_bot"
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var loader memory.QuestionSetLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		loader = pgloader.NewQuestionSetLoader(pool)
	} else {
		csvPath := cfg.Questions.CSVPath
		if csvPath == "" {
			csvPath = "questions.csv"
		}
		loader = csvfile.NewLoader(csvPath)
	}

	questionsTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var source domain.QuestionSource
	if redisClient != nil {
		source = redisinfra.NewQuestionRepository(redisClient, loader, questionsTTL)
	} else {
		source = memory.NewQuestionRepository(loader, questionsTTL)
	}

	setID := cfg.Questions.SetID
	if setID == "" {
		setID = "default"
	}
	set, err := source.GetQuestionSet(ctx, setID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	logger.Info("questions loaded", zap.String("set", setID), zap.Int("count", len(set.Questions)))

	if redisClient != nil {
		lockTTL := config.Duration(cfg.Redis.TTL, 30*time.Minute)
		lock := redisinfra.NewRunLock(redisClient, lockTTL)
		if err := lock.Acquire(ctx, group); err != nil {
			return fmt.Errorf("acquire group lock: %w", err)
		}
		defer lock.Release(context.Background(), group)
	}

	gw, err := ws.Dial(ctx, cfg.Gateway.URL, session, logger)
	if err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	defer gw.Close()

	timings := game.DefaultTimings()
	timings.QuestionDuration = config.Duration(cfg.Game.QuestionDuration, timings.QuestionDuration)
	timings.Grace = config.Duration(cfg.Game.Grace, timings.Grace)
	timings.RevealDelay = config.Duration(cfg.Game.RevealDelay, timings.RevealDelay)
	timings.NextDelay = config.Duration(cfg.Game.NextDelay, timings.NextDelay)

	master := game.NewMaster(gw, group, timings, logger)
	gw.OnMessage(master.HandleMessage)
	logger.Info("listening for answers", zap.String("group", group))

	results, err := master.Run(ctx, set)
	if err != nil {
		return err
	}

	printLeaderboard(results)

	if saveCSV {
		path := cfg.Leaderboard.CSVPath
		if path == "" {
			path = "leaderboard.csv"
		}
		if err := csvfile.NewLeaderboardWriter(path).WriteResults(results); err != nil {
			return fmt.Errorf("save leaderboard: %w", err)
		}
		logger.Info("leaderboard saved", zap.String("path", path))
	}
	return nil
}

func printLeaderboard(results []domain.RoundResult) {
	fmt.Println("\n================ LEADERBOARD ================")
	for i, entry := range results {
		fmt.Printf("\nQ%d: %s\n", i+1, entry.QuestionText)
		if len(entry.Winners) == 0 {
			fmt.Println("  No correct answers")
			continue
		}
		for j, w := range entry.Winners {
			fmt.Printf("  %d. %s - %.1fs\n", j+1, w.DisplayName, w.ResponseTime)
		}
	}
	fmt.Println("\n=============================================")
}
