package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"skincareReco/pkg/config"

	"github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures an embedded BadgerDB instance.
type BadgerOptions struct {
	// Path is ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool

	// nil disables badger's internal logging
	Logger *slog.Logger
}

func BadgerInMemoryConfig() BadgerOptions {
	return BadgerOptions{InMemory: true}
}

func BadgerOptionsFromConfig(cfg *config.Config, logger *slog.Logger) BadgerOptions {
	return BadgerOptions{
		Path:       cfg.Badger.Path,
		InMemory:   cfg.Badger.InMemory,
		SyncWrites: cfg.Badger.SyncWrites,
		Logger:     logger,
	}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens the database; the caller must Close it.
func OpenBadger(opts BadgerOptions) (*badger.DB, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("badger path is required for persistent database")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}

	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}
