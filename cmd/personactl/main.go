package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"persona-forge/internal/bootstrap"
	"persona-forge/internal/config"
	"persona-forge/internal/service"
)

// app agrupa lo que necesitan los comandos. Los tests lo construyen con un repo en memoria.
type app struct {
	logger *zap.Logger
	editor *service.PersonaEditor
}

type openFunc func(ctx context.Context, verbose bool) (*app, func(), error)

func main() {
	_ = godotenv.Load()
	root, closeApp := newRootCmd(openFromEnv)
	err := root.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openFromEnv(ctx context.Context, verbose bool) (*app, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := zap.NewNop()
	if verbose {
		logger = zap.NewExample()
	}
	repo, closeRepo, err := bootstrap.OpenPersonaRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	notifications := service.NewNotificationChannel(cfg.NotificationTTL)
	editor := service.NewPersonaEditor(
		logger,
		service.NewDraftStore(nil),
		service.NewCollectionStore(logger, repo, cfg.StoreTimeout),
		notifications,
		service.NewProgressTracker(),
	)
	cleanup := func() {
		notifications.Close()
		closeRepo()
		_ = logger.Sync()
	}
	return &app{logger: logger, editor: editor}, cleanup, nil
}

// newRootCmd devuelve el comando raiz y una funcion que libera el store abierto, si lo hubo.
func newRootCmd(open openFunc) (*cobra.Command, func()) {
	var (
		verbose bool
		a       *app
		cleanup func()
	)
	root := &cobra.Command{
		Use:   "personactl",
		Short: "Manage saved AI personas",
		Long: `personactl works directly on the configured persona store
(STORE_BACKEND: postgres, sqlite or memory).

Examples:
  personactl list
  personactl export <id> --out ./exports
  personactl import persona_Ada_1234abcd.json
  personactl edit`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, cleanup, err = open(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			if err := a.editor.Collection().Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("load personas: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store activity")

	current := func() *app { return a }
	root.AddCommand(
		newListCmd(current),
		newShowCmd(current),
		newExportCmd(current),
		newImportCmd(current),
		newDeleteCmd(current),
		newSimilarCmd(current),
		newEditCmd(current),
	)
	return root, func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}
}
