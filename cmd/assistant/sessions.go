package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func newSessionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored chat sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(o),
		newSessionsExportCmd(o),
		newSessionsDeleteCmd(o),
	)
	return cmd
}

func newSessionsListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := o.openSessions()
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			active, _ := store.Active(cmd.Context())
			return printSessions(cmd.OutOrStdout(), list, active.ID)
		},
	}
}

func printSessions(w io.Writer, list []session.Session, activeID string) error {
	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("", "ID", "TITLE", "MESSAGES", "UPDATED")
	for _, s := range list {
		mark := ""
		if s.ID == activeID {
			mark = "*"
		}
		table.AddRow(
			mark,
			idStyle.Render(s.ID),
			titleStyle.Render(s.Title),
			strconv.Itoa(len(s.Messages)),
			dateStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

func newSessionsExportCmd(o *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write one session as json, yaml or markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := session.ParseFormat(format)
			if err != nil {
				return err
			}
			store, closeFn, err := o.openSessions()
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := findSession(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			return session.Export(w, s, f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(session.FormatMarkdown), "output format: json, yaml or md")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newSessionsDeleteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := o.openSessions()
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := findSession(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			store.Delete(cmd.Context(), s.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", s.ID, s.Title)
			return nil
		},
	}
}

func findSession(ctx context.Context, store *session.Store, id string) (session.Session, error) {
	if _, err := store.Load(ctx); err != nil {
		return session.Session{}, err
	}
	s, ok := store.Get(ctx, id)
	if !ok {
		return session.Session{}, fmt.Errorf("session %q not found", id)
	}
	return s, nil
}
