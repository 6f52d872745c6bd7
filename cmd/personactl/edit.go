package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"persona-forge/internal/domain"
)

var errQuit = errors.New("quit")

func newEditCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Interactive persona editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &editSession{
				app: current(),
				in:  bufio.NewReader(cmd.InOrStdin()),
				out: cmd.OutOrStdout(),
			}
			err := s.run(cmd.Context())
			if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		},
	}
}

type editSession struct {
	app *app
	in  *bufio.Reader
	out io.Writer
}

func (s *editSession) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *editSession) run(ctx context.Context) error {
	for {
		fmt.Fprintln(s.out, "===== Persona Forge =====")
		personas := s.app.editor.Collection().List()
		if len(personas) == 0 {
			fmt.Fprintln(s.out, "No personas saved yet.")
		}
		for i, p := range personas {
			fmt.Fprintf(s.out, "[%d] %s (ID: %s)\n", i+1, p.Name, p.ID)
		}
		fmt.Fprintln(s.out, "[N] New persona")
		fmt.Fprintln(s.out, "[Q] Quit")

		choice, err := s.readLine("Select: ")
		if err != nil {
			return err
		}
		switch {
		case strings.EqualFold(choice, "Q"):
			return errQuit
		case strings.EqualFold(choice, "N"):
			s.app.editor.NewDraft()
		default:
			idx, err := strconv.Atoi(choice)
			if err != nil || idx < 1 || idx > len(personas) {
				fmt.Fprintln(s.out, "Invalid selection.")
				continue
			}
			if _, err := s.app.editor.EditSaved(ctx, personas[idx-1].ID); err != nil {
				printNotifications(s.out, s.app.editor)
				continue
			}
		}
		printNotifications(s.out, s.app.editor)

		if err := s.editDraft(ctx); err != nil {
			return err
		}
	}
}

// editDraft corre el menu sobre el borrador hasta "back" o "quit".
func (s *editSession) editDraft(ctx context.Context) error {
	for {
		s.printDraft()
		fmt.Fprintln(s.out, "Commands: name <text> | desc <text> | set <n> <0..1> | save | back | quit")
		line, err := s.readLine("> ")
		if err != nil {
			return err
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(verb) {
		case "":
			continue
		case "name":
			_, err = s.app.editor.Draft().SetName(rest)
		case "desc":
			_, err = s.app.editor.Draft().SetDescription(rest)
		case "set":
			err = s.setTrait(rest)
		case "save":
			_, err = s.app.editor.Save(ctx)
		case "back":
			return nil
		case "quit", "exit":
			return errQuit
		default:
			err = fmt.Errorf("unknown command %q", verb)
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		printNotifications(s.out, s.app.editor)
	}
}

func (s *editSession) setTrait(args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return fmt.Errorf("usage: set <n> <value>")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > domain.TraitDimensions {
		return fmt.Errorf("trait number must be between 1 and %d", domain.TraitDimensions)
	}
	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", fields[1])
	}
	category, field := traitAt(n)
	_, err = s.app.editor.Draft().SetTraitValue(category, field, value)
	return err
}

func (s *editSession) printDraft() {
	snap := s.app.editor.Draft().Snapshot()
	p := snap.Persona
	status := "saved"
	if snap.IsDirty {
		status = "unsaved changes"
	}
	fmt.Fprintf(s.out, "\n--- %s (v%d, %s) ---\n", p.Name, p.Metadata.Version, status)
	if p.Description != "" {
		fmt.Fprintln(s.out, p.Description)
	}
	n := 1
	for _, c := range domain.TraitCatalog {
		fmt.Fprintf(s.out, "%s\n", c.Label)
		for _, f := range c.Fields {
			v, _ := p.Traits.Value(c.Key, f.Key)
			fmt.Fprintf(s.out, "  %2d. %-18s %.2f\n", n, f.Label, v)
			n++
		}
	}
}

// traitAt resuelve el numero mostrado en printDraft (1-based) a categoria y campo.
func traitAt(n int) (string, string) {
	i := 1
	for _, c := range domain.TraitCatalog {
		for _, f := range c.Fields {
			if i == n {
				return c.Key, f.Key
			}
			i++
		}
	}
	return "", ""
}
