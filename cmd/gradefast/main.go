package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/config"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/session"
	"github.com/jhartz/gradefast/internal/submissions"
	"github.com/jhartz/gradefast/internal/termrep"
	"github.com/jhartz/gradefast/internal/walker"
	"github.com/jhartz/gradefast/internal/xdg"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "gradefast",
		Usage: "run a command tree against every student submission",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "project file (TOML); defaults to ./gradefast.toml",
			},
			&cli.BoolFlag{
				Name:  "batch",
				Usage: "grade every submission without prompting",
			},
			&cli.IntFlag{
				Name:  "start",
				Usage: "submission id to start from",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "list discovered submissions and exit",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "grading record file (default: under the XDG state dir)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	path := cmd.String("config")
	if path == "" {
		if path = xdg.FindProjectFile(); path == "" {
			return fmt.Errorf("no project file; pass --config or create gradefast.toml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	subs, err := submissions.Scan(cfg.Sources, submissions.Options{
		LastNameFirst: cfg.LastNameFirst,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("no submissions found")
	}

	if cmd.Bool("list") {
		for _, sub := range subs {
			fmt.Printf("%3d  %s\n", sub.ID, sub)
		}
		return nil
	}

	list := submissions.NewList(subs)
	if start := int(cmd.Int("start")); start > 0 {
		if !list.Seek(start) {
			return fmt.Errorf("no submission with id %d", start)
		}
	}

	exec := executor.New(logger)
	exec.Shell = cfg.Shell
	exec.Timeout = cfg.Timeout

	w := walker.New(exec, termrep.New(), cfg.SupportDir, logger)

	sess := session.New(w, exec, cfg.Root, list, logger)
	sess.Terminal = cfg.Terminal

	if cmd.Bool("batch") {
		err = sess.Batch(ctx)
	} else {
		err = sess.Interactive(ctx)
	}
	if err != nil {
		return err
	}

	recordPath := cmd.String("save")
	if recordPath == "" {
		recordPath = xdg.DefaultRecordPath(cfg.ProjectName, time.Now())
	}
	if err := saveRecord(recordPath, subs); err != nil {
		return err
	}
	logger.Info("grading record written", "path", recordPath)
	return nil
}

func saveRecord(path string, subs []*api.Submission) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
