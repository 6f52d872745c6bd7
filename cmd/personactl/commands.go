package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"persona-forge/internal/domain"
	"persona-forge/internal/service"
)

func newListCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			personas := current().editor.Collection().List()
			out := cmd.OutOrStdout()
			if len(personas) == 0 {
				fmt.Fprintln(out, "No personas saved")
				return nil
			}
			for _, p := range personas {
				fmt.Fprintf(out, "%s  %-24s v%d  %s\n",
					p.ID, p.Name, p.Metadata.Version, p.Metadata.LastModified.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newShowCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved persona as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := findPersona(current(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
}

func newExportCmd(current func() *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved persona to persona_<name>_<id>.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := findPersona(current(), args[0])
			if err != nil {
				return err
			}
			exported, err := service.EncodePersona(p)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, exported.Filename)
			if err := os.WriteFile(path, exported.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory for the exported file")
	return cmd
}

func newImportCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Validate an exported persona file and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			a := current()
			_, importErr := a.editor.Import(data)
			if importErr == nil {
				_, importErr = a.editor.Save(cmd.Context())
			}
			printNotifications(cmd.OutOrStdout(), a.editor)
			return importErr
		},
	}
}

func newDeleteCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			err := a.editor.DeleteSaved(cmd.Context(), args[0])
			printNotifications(cmd.OutOrStdout(), a.editor)
			return err
		},
	}
}

func newSimilarCmd(current func() *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "List the saved personas closest in traits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			target, err := findPersona(a, args[0])
			if err != nil {
				return err
			}
			found, err := a.editor.Collection().Similar(cmd.Context(), target.ID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range found {
				fmt.Fprintf(out, "%s  %-24s distance=%.3f\n", p.ID, p.Name, domain.Distance(target.Traits, p.Traits))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 3, "How many personas to show")
	return cmd
}

func findPersona(a *app, id string) (domain.Persona, error) {
	p, ok := a.editor.Collection().Get(id)
	if !ok {
		return domain.Persona{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// printNotifications vuelca y descarta los mensajes pendientes del editor.
func printNotifications(out io.Writer, editor *service.PersonaEditor) {
	for _, n := range editor.Notifications().List() {
		fmt.Fprintf(out, "[%s] %s\n", n.Severity, n.Message)
		editor.Notifications().Dismiss(n.ID)
	}
}
