package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"page-builder/internal/builder/cli"
	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/registry"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
	"page-builder/internal/common/config"
	"page-builder/internal/common/logger"
)

// ============================================================
// Page Builder REPL
// ============================================================

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// лог в файл, чтобы не мешать вводу
	if dir := filepath.Dir(cfg.CLILogFile); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	logs, err := logger.New().FromPath(cfg.CLILogFile).WithLevel(cfg.LogLevel).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()
	log := logs.Logger

	db, dialect, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.New(db, dialect, log.With().Str("component", "repository").Logger())
	if err := repo.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "init db: %v\n", err)
		os.Exit(1)
	}

	reg := registry.Default()
	dispatcher, err := render.NewDispatcher(reg, render.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init renderer: %v\n", err)
		os.Exit(1)
	}
	ctl := controller.New(reg, dispatcher, repo, controller.WithLogger(log))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.CLIHistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	repl := cli.New(ctl, repo, rl, rl.Stdout())
	fmt.Fprintln(rl.Stdout(), "Page builder. Use 'help' for the list of commands.")

	// аргументы: скрипты, выполняются до интерактивного режима
	for _, script := range os.Args[1:] {
		if err := repl.ExecuteScript(ctx, script); err != nil {
			fmt.Fprintf(rl.Stderr(), "Error executing script %s: %v\n", script, err)
		}
	}

	for {
		err := repl.Run(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(rl.Stdout(), "Use 'exit' or 'quit' to exit the program.")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		fmt.Fprintln(rl.Stderr(), "Error:", err)
	}
}
