package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/casefile/internal/server"
	"github.com/kingrea/casefile/internal/tui"
)

var withAPI bool

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a case in the terminal",
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&withAPI, "api", false, "also serve the JSON API while playing")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if withAPI {
		srv, err := eng.newServer()
		if err != nil {
			return err
		}
		switch err := srv.Start(cmd.Context()); {
		case errors.Is(err, server.ErrDisabled):
			eng.logger.Warn("play: api requested but server is disabled")
		case err != nil:
			return err
		default:
			eng.logger.Info("play: api listening on %s", srv.BaseURL())
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()
		}
	}

	app, err := tui.NewApp(eng.game, eng.detective, tui.WithLogger(eng.logger))
	if err != nil {
		return err
	}
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
