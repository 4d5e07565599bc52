// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
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

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level(42).toSlogLevel())
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_WriterAndService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Service: "realdom-test", Writer: &buf})
	defer logger.Close()

	logger.Info("batch applied", "edits", 3)
	out := buf.String()
	assert.Contains(t, out, "batch applied")
	assert.Contains(t, out, "service=realdom-test")
	assert.Contains(t, out, "edits=3")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf})
	logger.Warn("aborted", "edit", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "aborted", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.EqualValues(t, 2, rec["edit"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Writer: &buf})

	logger.Debug("hidden-debug")
	logger.Info("hidden-info")
	logger.Warn("shown-warn")
	logger.Error("shown-error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown-warn")
	assert.Contains(t, out, "shown-error")
}

func TestLogger_QuietWithoutFileDiscards(t *testing.T) {
	logger := New(Config{Quiet: true})
	require.NotNil(t, logger.Slog())
	logger.Error("nowhere")
	assert.NoError(t, logger.Close())
}

func TestLogger_WithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})
	child := logger.With("batch_id", "abc123")

	child.Info("resolved")
	logger.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "batch_id=abc123")
	assert.NotContains(t, lines[1], "batch_id")
}

func TestLogger_FileOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	var console bytes.Buffer
	logger := New(Config{LogDir: dir, Service: "svc", Writer: &console, Level: LevelDebug})

	logger.Debug("to both", "n", 1)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	name := "svc_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
	assert.Contains(t, console.String(), "to both")
}

func TestLogger_UnwritableLogDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(file, "sub"), Writer: &buf})
	logger.Info("still logs")

	assert.Nil(t, logger.file)
	assert.Contains(t, buf.String(), "still logs")
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := New(Config{Writer: writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("worker", "i", i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, strings.Count(buf.String(), "worker"))
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// =============================================================================
// Multi-Handler Tests
// =============================================================================

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var low, high bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&low, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&high, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	ctx := context.Background()

	assert.True(t, h.Enabled(ctx, slog.LevelDebug))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("g"))
	logger.Debug("only-low", "x", 1)
	logger.Error("both")

	assert.Contains(t, low.String(), "only-low")
	assert.Contains(t, low.String(), "g.x=1")
	assert.NotContains(t, high.String(), "only-low")
	assert.Contains(t, high.String(), "both")
	assert.Contains(t, high.String(), "k=v")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), expandPath("~/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "rel/path", expandPath("rel/path"))
}
