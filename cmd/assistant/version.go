package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lgc202/assistant/version"
)

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no settings or stores needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			switch output {
			case "json":
				s, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
			case "short":
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			case "text", "":
				fmt.Fprintln(cmd.OutOrStdout(), info.Text())
			default:
				return fmt.Errorf("unknown output format %q (want text, json or short)", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or short")
	return cmd
}
