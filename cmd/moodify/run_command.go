package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"moodify/internal/graph"
	"moodify/internal/prefs"
	"moodify/internal/services/oracle"
	"moodify/internal/services/spotify"
	"moodify/internal/session"
)

const accessTokenKey = "spotify.access_token"

func newRunCommand(ctx *commandContext) *cobra.Command {
	var vibe string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the auto-DJ session loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			// One session per data directory.
			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "moodify.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !locked {
				return errors.New("another moodify session is already running against this data directory")
			}
			defer func() {
				_ = lock.Unlock()
			}()

			store, err := graph.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			kv := prefs.NewStore(store.DB())
			tokens := spotify.TokenFunc(func(tokenCtx context.Context) (string, error) {
				return kv.Get(tokenCtx, accessTokenKey)
			})

			graphSvc := graph.NewService(store, logger, cfg.Graph)
			player := spotify.NewClient(cfg.Spotify, tokens)
			oracleClient := oracle.NewClient(cfg.Oracle)

			manager := session.NewManager(cfg, graphSvc, player, oracleClient, logger)
			if vibe != "" {
				manager.Orchestrator().StartSession(cmd.Context(), vibe)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := manager.Start(runCtx); err != nil {
				return err
			}
			manager.SetActive(true)

			<-runCtx.Done()
			manager.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&vibe, "vibe", "", "Initial session vibe label")
	return cmd
}
