package main

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/llm"
)

func newModelsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the selectable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := o.openSettings(false)
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), st.Get().Model())
		},
	}
}

func printModels(w io.Writer, selected string) error {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("", "ID", "NAME", "PROVIDER")
	for _, m := range llm.Models() {
		mark := ""
		if m.ID == selected {
			mark = "*"
		}
		table.AddRow(mark, m.ID, m.DisplayName, m.ProviderLabel)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}
