package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/vischat/internal/api"
	"github.com/RichardoC/vischat/internal/chat"
	"github.com/RichardoC/vischat/internal/config"
	"github.com/RichardoC/vischat/internal/conversation"
	"github.com/RichardoC/vischat/internal/db"
	"github.com/RichardoC/vischat/internal/llm"
	"github.com/RichardoC/vischat/internal/logger"
	"github.com/RichardoC/vischat/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Debug())
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Please set all required environment variables in your .env file", zap.Error(err))
	}

	newStore, closeStore, err := newStoreFactory(cfg)
	if err != nil {
		log.Fatal("failed to initialize conversation store",
			zap.Error(err),
			zap.String("store", cfg.Store),
			zap.String("dbPath", cfg.DBPath))
	}

	// Initialize LLM service
	llmService, err := llm.New(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	assembler := llm.NewAssembler(llm.AssemblerOptions{
		SystemPrompt: cfg.SystemPrompt,
		UserPreamble: cfg.UserPreamble,
		AllowImages:  cfg.AllowImages,
		ReplayImages: cfg.ReplayImages,
	})
	chatService := chat.New(assembler, llmService, log)
	sessions := session.NewManager(newStore, cfg.SessionTTL, log)

	handler := api.NewHandler(chatService, sessions, log, api.Options{
		Title:         cfg.Title,
		MaxImageBytes: cfg.MaxImageBytes,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(api.RequestLogger(log))
	handler.RegisterRoutes(e)

	go func() {
		log.Info("Starting server",
			zap.String("addr", cfg.ListenAddr),
			zap.String("deployment", cfg.Deployment),
			zap.String("store", cfg.Store))
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := multierr.Combine(e.Shutdown(ctx), closeStore()); err != nil {
		log.Error("unclean shutdown", zap.Error(err))
	}
}

func newStoreFactory(cfg *config.Config) (session.StoreFactory, func() error, error) {
	if cfg.Store != config.StoreSQLite {
		newStore := func(string) conversation.Store { return conversation.NewMemory() }
		return newStore, func() error { return nil }, nil
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Purge(context.Background()); err != nil {
		return nil, nil, multierr.Append(err, database.Close())
	}
	newStore := func(id string) conversation.Store { return database.Conversation(id) }
	return newStore, database.Close, nil
}
