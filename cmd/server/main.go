package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"mascarpone/internal/app"
	"mascarpone/internal/config"
	"mascarpone/internal/ports"
	"mascarpone/internal/ports/pubsub"
	"mascarpone/internal/ports/ws"
)

func main() {
	configPath := flag.String("config", "data/game_config.json", "path to the game config")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env")
	}

	log := logrus.New()
	if os.Getenv("LOG_FORMAT") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	if err := config.LoadGameConfig(*configPath); err != nil {
		log.WithError(err).Warn("using default game config")
	}
	cfg := config.GetGameConfig()
	if err := cfg.ApplyEnv(config.ProcessEnv()); err != nil {
		log.WithError(err).Fatal("invalid environment override")
	}
	rules, err := cfg.Rules()
	if err != nil {
		log.WithError(err).Fatal("invalid game rules")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub ports.EventPublisher = ports.NopPublisher{}
	if url := os.Getenv("REDIS_URL"); url != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		redisPub, err := pubsub.Dial(dialCtx, url)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisPub.Close()
		pub = redisPub
		log.Info("publishing room events to redis")
	}

	dir := app.NewDirectory(app.NewService(nil, rules))
	server := ws.NewServer(dir, pub, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	server.Register(e)

	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = "5000"
	}

	go func() {
		log.WithField("port", httpPort).Info("mascarpone server listening")
		if err := e.Start(":" + httpPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
