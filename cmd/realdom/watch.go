// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/realdom/pkg/mutation"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Apply YAML mutation batches as they appear in a directory",
	Long: `Applies every *.yaml file already in the directory in name order, then
applies each new *.yaml file as it is created, printing the tree after every
batch. Each file is applied once. Producers should write the batch elsewhere
and rename it into the directory so it is never read half written. A batch
that fails is logged and skipped; its partially built nodes are discarded
so the next batch starts from an empty operand stack. Stops on interrupt.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	a, err := newApp(rt.logger.Slog())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return watchDir(ctx, args[0], a, cmd.OutOrStdout(), rt.logger.Slog())
}

// watchDir feeds batch files from dir into a until ctx is done.
func watchDir(ctx context.Context, dir string, a *app, out io.Writer, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	applied := make(map[string]struct{})
	consume := func(path string) {
		if _, done := applied[path]; done {
			return
		}
		applied[path] = struct{}{}
		if err := applyBatchFile(ctx, a, path, out); err != nil {
			logger.Warn("batch skipped", "file", path, "error", err)
		}
	}

	existing, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, path := range existing {
		consume(path)
	}
	logger.Info("watching for batches", "dir", dir, "applied", len(existing))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && filepath.Ext(ev.Name) == ".yaml" {
				consume(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func applyBatchFile(ctx context.Context, a *app, path string, out io.Writer) error {
	batch, err := mutation.LoadFile(path)
	if err != nil {
		return err
	}
	changed, err := a.apply(ctx, batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s: %d edits, %d nodes changed\n", filepath.Base(path), len(batch.Edits), len(changed))
	return printTree(out, a)
}
