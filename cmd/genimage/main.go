package main

import (
	"ImageChat/internal/ai"
	"ImageChat/internal/app/orchestrator"
	"ImageChat/internal/config"
	"ImageChat/internal/service/conversation"
	"ImageChat/internal/service/image"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Пример: go run ./cmd/genimage -provider stub "a red fox in snow"
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	prompt := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(prompt) == "" {
		fmt.Fprintln(os.Stderr, "usage: genimage [flags] <prompt>")
		os.Exit(2)
	}

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	client, err := ai.NewFromConfig(ctx, cfg, sugar)
	if err != nil {
		sugar.Errorw("failed to create image client", "error", err)
		os.Exit(1)
	}

	// Тот же путь, что и в интерфейсе: Store + оркестратор
	store := conversation.New(conversation.Greeting)
	orch := orchestrator.New(store, client, cfg.GenerateTimeout(), sugar)
	defer orch.Close()

	orch.SubmitPrompt(prompt)
	orch.Wait()

	lc := store.Lifecycle()
	if last, ok := store.Snapshot().LastSystemEntry(); ok {
		fmt.Println(last.Text)
	}
	if lc.Status != conversation.StatusSucceeded {
		os.Exit(1)
	}
	fmt.Println("ref:", shorten(lc.ImageRef))

	if !cfg.SaveImages {
		return
	}
	saved, err := image.NewSaver(cfg.ImagesOutputDir).Save(ctx, lc.ImageRef)
	switch {
	case errors.Is(err, image.ErrNotMaterializable):
	case err != nil:
		sugar.Warnw("failed to save image", "error", err)
	default:
		fmt.Printf("saved: %s (%dx%d, %d bytes)\n", saved.Path, saved.Width, saved.Height, saved.SizeBytes)
	}
}

func shorten(ref string) string {
	if len(ref) > 120 {
		return ref[:120] + "..."
	}
	return ref
}
