// augext-sync runs one discovery and synchronization pass, then optionally
// keeps watching the stores and re-syncing on change. It takes a single
// optional argument: the path to augext.yaml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/augmentcode/augment-extensions/internal/config"
	"github.com/augmentcode/augment-extensions/internal/logger"
	"github.com/augmentcode/augment-extensions/internal/module"
	"github.com/augmentcode/augment-extensions/internal/syncer"
	"github.com/augmentcode/augment-extensions/internal/taskstore"
	"github.com/augmentcode/augment-extensions/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "augext-sync:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := config.FileName
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.ForComponent("augext-sync")

	var source taskstore.Source
	if cfg.TaskDB != "" {
		db, err := taskstore.OpenDB(cfg.TaskDB)
		if err != nil {
			return err
		}
		defer db.Close()
		source = db
	} else {
		source = taskstore.NewLogSource(cfg.TaskLog)
	}

	engine := syncer.New(cfg.ManifestPath, source, cfg.SpecsRoot)

	sync := func() {
		idx, err := module.Discover(cfg.ModulesRoot)
		if err != nil {
			log.Error("discovery failed", "error", err)
		} else {
			if _, err := engine.BindRules(idx); err != nil {
				log.Error("rule binding failed", "error", err)
			}
		}

		res, err := engine.Sync()
		if err != nil {
			log.Error("sync failed", "error", err)
			return
		}
		for _, warning := range res.Warnings {
			log.Warn(warning, "run_id", res.RunID)
		}
	}

	sync()

	if !cfg.Watcher.Enabled {
		return nil
	}

	w, err := watcher.New(cfg.Watcher, func(events []watcher.ChangeEvent) {
		log.Info("store change detected", "events", len(events))
		sync()
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	for _, root := range []string{cfg.SpecsRoot, cfg.ModulesRoot} {
		if err := w.AddRoot(root); err != nil {
			log.Warn("cannot watch root", "path", root, "error", err)
		}
	}
	if cfg.TaskLog != "" {
		if err := w.AddRoot(cfg.TaskLog); err != nil {
			log.Warn("cannot watch task log", "path", cfg.TaskLog, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
