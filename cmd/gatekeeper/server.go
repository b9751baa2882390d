package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boardpost/gatekeeper/moderation"
	"github.com/boardpost/gatekeeper/moderation/countstore"
	"github.com/boardpost/gatekeeper/moderation/store"
	"github.com/boardpost/gatekeeper/moderation/text"
	"github.com/boardpost/gatekeeper/moderation/visual"
	"github.com/boardpost/gatekeeper/util"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
)

type Server struct {
	logger *slog.Logger
	engine *moderation.Engine
	echo   *echo.Echo
	httpd  *http.Server
	jobTTL time.Duration
}

type Config struct {
	Logger            *slog.Logger
	Store             *store.GormStore
	Boards            moderation.BoardRegistry
	Thresholds        moderation.Thresholds
	RedisURL          string
	TextScorerHost    string
	TextScorerToken   string
	MediaScorerHost   string
	MediaScorerToken  string
	CallbackURL       string
	AdminWebhookURL   string
	DefaultLanguage   string
	MediaSyncMaxBytes int64
	AuthorDailyQuota  int
	JobTTL            time.Duration
	Bind              string
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var counters countstore.CountStore
	if config.RedisURL != "" {
		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %w", err)
		}
		counters = cnt
	} else {
		counters = countstore.NewMemCountStore()
	}

	var notifier moderation.Notifier
	if config.AdminWebhookURL != "" {
		logger.Info("configuring admin webhook notifications")
		notifier = moderation.NewWebhookNotifier(util.RobustHTTPClient(), config.AdminWebhookURL)
	}

	eng := &moderation.Engine{
		Logger:            logger,
		Records:           config.Store,
		Jobs:              config.Store,
		TextScorer:        text.NewClient(config.TextScorerHost, config.TextScorerToken),
		MediaScorer:       visual.NewClient(config.MediaScorerHost, config.MediaScorerToken, config.Thresholds.Block, config.CallbackURL),
		Counters:          counters,
		AuthorDailyQuota:  config.AuthorDailyQuota,
		Thresholds:        config.Thresholds,
		Boards:            config.Boards,
		DefaultLanguage:   config.DefaultLanguage,
		MediaSyncMaxBytes: config.MediaSyncMaxBytes,
		JobTTL:            config.JobTTL,
		Notifier:          notifier,
	}

	srv := &Server{
		logger: logger,
		engine: eng,
		jobTTL: config.JobTTL,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/api/moderation/posts", srv.HandleSubmitContent)
	e.POST("/api/moderation/text", srv.HandleAnalyzeText)
	e.GET("/api/moderation/:referenceId", srv.HandleGetContent)
	e.POST("/api/moderation/callback", srv.HandleJobCallback)
	e.GET("/api/admin/alerts", srv.HandleListAlerts)
	e.POST("/api/admin/alerts/:id/ack", srv.HandleAckAlert)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	return srv, nil
}

func (srv *Server) RunAPI() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.RunJobSweeper(ctx)

	slog.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)
		cancel()
		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
