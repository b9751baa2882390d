package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/boardpost/gatekeeper/moderation"
	"github.com/boardpost/gatekeeper/moderation/store"
	"github.com/boardpost/gatekeeper/util"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "gatekeeper",
		Usage:   "content moderation pipeline daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":8300",
			EnvVars: []string{"GATEKEEPER_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":8301",
			EnvVars: []string{"GATEKEEPER_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/gatekeeper/moderation.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for author frequency counters; in-memory counters when empty",
			EnvVars: []string{"GATEKEEPER_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "text-scorer-host",
			Usage:   "method, hostname, and port of text classification backend",
			Value:   "http://localhost:9100",
			EnvVars: []string{"GATEKEEPER_TEXT_SCORER_HOST"},
		},
		&cli.StringFlag{
			Name:    "text-scorer-token",
			EnvVars: []string{"GATEKEEPER_TEXT_SCORER_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "media-scorer-host",
			Usage:   "method, hostname, and port of media classification backend",
			Value:   "http://localhost:9200",
			EnvVars: []string{"GATEKEEPER_MEDIA_SCORER_HOST"},
		},
		&cli.StringFlag{
			Name:    "media-scorer-token",
			EnvVars: []string{"GATEKEEPER_MEDIA_SCORER_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "callback-url",
			Usage:   "public URL of this service's job-status callback endpoint",
			Value:   "http://localhost:8300/api/moderation/callback",
			EnvVars: []string{"GATEKEEPER_CALLBACK_URL"},
		},
		&cli.Float64Flag{
			Name:    "review-threshold",
			Usage:   "negative score at or above which content goes to human review",
			Value:   0.7,
			EnvVars: []string{"GATEKEEPER_REVIEW_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "block-threshold",
			Usage:   "negative score at or above which content is blocked outright",
			Value:   0.9,
			EnvVars: []string{"GATEKEEPER_BLOCK_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "default-language",
			Value:   "ko",
			EnvVars: []string{"GATEKEEPER_DEFAULT_LANGUAGE"},
		},
		&cli.Int64Flag{
			Name:    "media-sync-max-bytes",
			Usage:   "image assets above this size are scored via the async job path",
			Value:   5_000_000,
			EnvVars: []string{"GATEKEEPER_MEDIA_SYNC_MAX_BYTES"},
		},
		&cli.IntFlag{
			Name:    "author-daily-quota",
			Usage:   "submissions per author per day before new content is routed to review (0 disables)",
			Value:   0,
			EnvVars: []string{"GATEKEEPER_AUTHOR_DAILY_QUOTA"},
		},
		&cli.DurationFlag{
			Name:    "job-ttl",
			Usage:   "how long to wait for an async media job callback before sweeping the record to review",
			Value:   moderation.DefaultJobTTL,
			EnvVars: []string{"GATEKEEPER_JOB_TTL"},
		},
		&cli.StringFlag{
			Name:    "admin-webhook-url",
			Usage:   "webhook URL notified about blocked content; disabled when empty",
			EnvVars: []string{"GATEKEEPER_ADMIN_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "boards-file-json",
			Usage:   "path to a JSON board registry; built-in defaults when empty",
			EnvVars: []string{"GATEKEEPER_BOARDS_FILE_JSON"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		configOTEL("gatekeeper")

		thresholds := moderation.Thresholds{
			Review: cctx.Float64("review-threshold"),
			Block:  cctx.Float64("block-threshold"),
		}
		if err := thresholds.Validate(); err != nil {
			return err
		}

		db, err := util.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		st, err := store.NewGormStore(db)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}

		boards := moderation.DefaultBoards()
		if p := cctx.String("boards-file-json"); p != "" {
			boards, err = moderation.LoadBoardsFromFileJSON(p)
			if err != nil {
				return fmt.Errorf("loading board registry: %w", err)
			}
			logger.Info("loaded board registry from JSON", "path", p, "boards", len(boards))
		}

		srv, err := NewServer(Config{
			Logger:            logger,
			Store:             st,
			Boards:            boards,
			Thresholds:        thresholds,
			RedisURL:          cctx.String("redis-url"),
			TextScorerHost:    cctx.String("text-scorer-host"),
			TextScorerToken:   cctx.String("text-scorer-token"),
			MediaScorerHost:   cctx.String("media-scorer-host"),
			MediaScorerToken:  cctx.String("media-scorer-token"),
			CallbackURL:       cctx.String("callback-url"),
			AdminWebhookURL:   cctx.String("admin-webhook-url"),
			DefaultLanguage:   cctx.String("default-language"),
			MediaSyncMaxBytes: cctx.Int64("media-sync-max-bytes"),
			AuthorDailyQuota:  cctx.Int("author-daily-quota"),
			JobTTL:            cctx.Duration("job-ttl"),
			Bind:              cctx.String("bind"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.RunAPI(); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}
