package main

import (
	"ImageChat/internal/adapter/chat/twitch"
	"ImageChat/internal/ai"
	"ImageChat/internal/app/orchestrator"
	"ImageChat/internal/app/scheduler"
	"ImageChat/internal/config"
	"ImageChat/internal/logging"
	"ImageChat/internal/service/conversation"
	"ImageChat/internal/service/events"
	"ImageChat/internal/service/events/stateserver"
	"ImageChat/internal/service/image"
	"ImageChat/internal/service/notify"
	"ImageChat/internal/service/player"
	"ImageChat/internal/ui"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	// Терминал занят интерфейсом, логи пишем в файл
	baseLogger, err := logging.New(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Debug:      cfg.DebugMode,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	sugar := baseLogger.With("session", uuid.NewString())
	//сброс буфера логгера
	defer func() { _ = sugar.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"Provider", cfg.Provider,
		"SaveImages", cfg.SaveImages,
		"StateServer", cfg.StateServer.Enabled,
	)

	client, err := ai.NewFromConfig(ctx, cfg, sugar)
	if err != nil {
		sugar.Errorw("failed to create image client", "error", err)
		fmt.Fprintf(os.Stderr, "image client error: %v\n", err)
		os.Exit(1)
	}

	store := conversation.New(conversation.Greeting)
	orch := orchestrator.New(store, client, cfg.GenerateTimeout(), sugar)
	defer func() {
		// сначала оркестратор, чтобы поздний результат не попал в закрытый Store
		orch.Close()
		store.Close()
		orch.Wait()
	}()

	var gallery ui.Gallery
	if cfg.SaveImages {
		g := image.NewGallery(image.NewSaver(cfg.ImagesOutputDir), sugar)
		store.Subscribe(g.Observe)
		defer g.Close()
		gallery = g

		if cfg.ImagesTTLSeconds > 0 {
			cleaner := image.NewCleaner(cfg.ImagesOutputDir, time.Duration(cfg.ImagesTTLSeconds)*time.Second, sugar)
			go func() { _ = scheduler.New("images-cleanup", time.Minute, 30*time.Second, cleaner.Job, sugar).Run(ctx) }()
		}
	}

	if cfg.NotificationSoundPath != "" {
		n := notify.NewSoundNotifier(sugar, cfg.NotificationSoundPath, player.New())
		store.Subscribe(n.Observe)
	}

	if cfg.StateServer.Enabled {
		var srv events.EventServer = stateserver.NewStateServer(cfg.StateServer, store, orch, sugar)
		if err := srv.Start(ctx); err != nil {
			sugar.Errorw("failed to start state server", "error", err)
		}
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	if cfg.TwitchChannel != "" {
		go func() {
			err := twitch.Run(ctx, sugar, twitch.Config{
				Username: cfg.TwitchUsername,
				OAuth:    cfg.TwitchOAuthToken,
				Channel:  cfg.TwitchChannel,
				Command:  cfg.TwitchCommand,
			}, store, orch)
			if err != nil && !errors.Is(err, context.Canceled) {
				sugar.Warnw("Twitch chat stopped", "error", err)
			}
		}()
	}

	p := tea.NewProgram(ui.New(store, orch, gallery), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		sugar.Errorw("TUI stopped with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
	}
	sugar.Infow("Session ended", "entries", store.Len())
}
