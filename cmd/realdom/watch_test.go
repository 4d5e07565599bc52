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
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe to read while the watcher writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	staging := t.TempDir()
	copyFile(t, "testdata/toolbar.yaml", filepath.Join(dir, "001-toolbar.yaml"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- watchDir(ctx, dir, a, out, logger) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "== 001-toolbar.yaml")
	}, 5*time.Second, 10*time.Millisecond, "existing batch applied on start")

	// A malformed batch is skipped and the watcher keeps going.
	bad := filepath.Join(staging, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("edits:\n  - {op: explode}\n"), 0o644))
	require.NoError(t, os.Rename(bad, filepath.Join(dir, "002-bad.yaml")))

	lock := filepath.Join(staging, "lock.yaml")
	copyFile(t, "testdata/lock.yaml", lock)
	require.NoError(t, os.Rename(lock, filepath.Join(dir, "003-lock.yaml")))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "keeps-focus")
	}, 5*time.Second, 10*time.Millisecond, "renamed batch applied")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "== 003-lock.yaml"))
	assert.NotContains(t, got, "002-bad.yaml")
	assert.Contains(t, got, "== 003-lock.yaml: 2 edits")
}

func TestWatchDir_MissingDir(t *testing.T) {
	a, err := newApp(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	err = watchDir(context.Background(), filepath.Join(t.TempDir(), "nope"), a, io.Discard, slog.Default())
	require.Error(t, err)
}
