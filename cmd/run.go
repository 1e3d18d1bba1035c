package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/cyberguard/internal/config"
	"github.com/abhisek/cyberguard/internal/embedding"
	"github.com/abhisek/cyberguard/internal/grading"
	"github.com/abhisek/cyberguard/internal/llm"
	"github.com/abhisek/cyberguard/internal/notes"
	"github.com/abhisek/cyberguard/internal/progression"
	"github.com/abhisek/cyberguard/internal/questionbank"
	"github.com/abhisek/cyberguard/internal/store"
	"github.com/abhisek/cyberguard/internal/tutor"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	bank     *questionbank.Bank
	progress *progression.Service
	tutor    *tutor.Service
	notes    *notes.Service
}

// openApp loads configuration, opens the store, and builds every service.
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}

	bank, err := loadBank(cfg)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	events := st.EventRepo()
	oracle := llm.OpenOracle(ctx, cfg.LLM, events, logger)
	if !oracle.Available() {
		logger.Info("LLM provider not configured; feedback and notes use canned text")
	}
	grader := newGrader(ctx, cfg, logger)

	progress := progression.NewService(st.ProgressRepo(), bank, progression.Options{
		Config:  cfg.Progression,
		Modules: cfg.Modules,
		Logger:  logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		bank:     bank,
		progress: progress,
		tutor:    tutor.NewService(bank, grader, progress, events, oracle, logger),
		notes:    notes.NewService(bank, oracle, st.NotesRepo(), logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// setup loads configuration and the logger only.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func loadBank(cfg config.Config) (*questionbank.Bank, error) {
	var (
		bank *questionbank.Bank
		err  error
	)
	if cfg.QuestionBank != "" {
		bank, err = questionbank.LoadFile(cfg.QuestionBank)
	} else {
		bank, err = questionbank.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if err := cfg.CheckModules(bank); err != nil {
		return nil, err
	}
	return bank, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func newGrader(ctx context.Context, cfg config.Config, logger *slog.Logger) *grading.Grader {
	return grading.New(embedding.NewProvider(ctx, cfg.Embedding, logger), cfg.Grading, logger)
}
