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
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/realdom/pkg/telemetry"
)

var buttonsCmd = &cobra.Command{
	Use:   "buttons",
	Short: "Tab through a grid of buttons rendered from a RealDOM",
	Long: `Builds a grid of buttons through mutation batches and moves focus
through it with the focus navigator. Tab and Shift+Tab move focus, Space
toggles the focused button, q quits.`,
	RunE: runButtons,
}

var (
	colorTeal   = lipgloss.Color("#20B9B4")
	colorBright = lipgloss.Color("#2CD7C7")
	colorSlate  = lipgloss.Color("#2C4A54")
	colorGold   = lipgloss.Color("#F4D03F")
	colorError  = lipgloss.Color("#E74C3C")

	cellStyle = lipgloss.NewStyle().
			Width(14).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSlate)
	focusedCellStyle = cellStyle.BorderForeground(colorBright).Bold(true)
	toggledStyle     = lipgloss.NewStyle().Foreground(colorGold)
	fillerStyle      = lipgloss.NewStyle().Width(16).Foreground(colorSlate)
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	statusStyle      = lipgloss.NewStyle().Foreground(colorSlate)
	errorStyle       = lipgloss.NewStyle().Foreground(colorError)
)

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Toggle, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous")),
	Toggle: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type buttonsModel struct {
	ctx    context.Context
	app    *app
	keys   keyMap
	help   help.Model
	status string
	err    error
}

func newButtonsModel(ctx context.Context, a *app) buttonsModel {
	return buttonsModel{
		ctx:    ctx,
		app:    a,
		keys:   keys,
		help:   help.New(),
		status: "press tab to focus the first button",
	}
}

func (m buttonsModel) Init() tea.Cmd {
	return nil
}

func (m buttonsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.status = m.moved(m.app.advance(true))
		case key.Matches(msg, m.keys.Prev):
			m.status = m.moved(m.app.advance(false))
		case key.Matches(msg, m.keys.Toggle):
			toggled, err := m.app.toggleFocused(m.ctx)
			m.err = err
			if toggled {
				m.status = "toggled"
			} else if err == nil {
				m.status = "nothing to toggle"
			}
		}
	}
	return m, nil
}

func (m buttonsModel) moved(ok bool) string {
	if !ok {
		return "focus stays put"
	}
	return "level " + m.app.nav.Level().String()
}

func (m buttonsModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("realdom buttons"))
	b.WriteString("\n\n")
	for _, row := range m.app.grid() {
		rendered := make([]string, 0, len(row))
		for _, c := range row {
			rendered = append(rendered, renderCell(c))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, rendered...))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func renderCell(c cell) string {
	if !c.button {
		return fillerStyle.Render("")
	}
	label := c.label
	if c.toggled {
		label = toggledStyle.Render(label)
	}
	if c.focused {
		return focusedCellStyle.Render(label)
	}
	return cellStyle.Render(label)
}

func runButtons(cmd *cobra.Command, _ []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("buttons needs an interactive terminal")
	}
	rt, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(rt.logger.Slog())
	if err != nil {
		return err
	}
	if _, err := a.apply(ctx, a.gridBatch(rt.cfg.Demo.Rows, rt.cfg.Demo.Cols)); err != nil {
		return fmt.Errorf("build grid: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := rt.cfg.Telemetry.MetricsAddr; addr != "" {
		router := telemetry.NewRouter(rt.cfg.Telemetry.ServiceName)
		router.GET("/focus", func(c *gin.Context) {
			c.JSON(http.StatusOK, a.focusSummary())
		})
		g.Go(func() error {
			return telemetry.Serve(gctx, addr, router, rt.logger.Slog())
		})
	}
	g.Go(func() error {
		// Quitting the program stops the server too.
		defer cancel()
		_, err := tea.NewProgram(newButtonsModel(gctx, a), tea.WithAltScreen(), tea.WithContext(gctx)).Run()
		return err
	})
	return g.Wait()
}
