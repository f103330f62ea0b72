package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/marquee/internal/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !verbose {
				_, err := fmt.Fprintf(out, "%s %s\n", version.Module(), version.Current())
				return err
			}
			info := version.Info()
			fmt.Fprintf(out, "module:   %s\n", info.Module)
			fmt.Fprintf(out, "version:  %s\n", info.Version)
			fmt.Fprintf(out, "go:       %s\n", info.GoVersion)
			if info.Revision != "" {
				fmt.Fprintf(out, "revision: %s\n", info.Revision)
			}
			if !info.Time.IsZero() {
				fmt.Fprintf(out, "built:    %s\n", info.Time.UTC().Format("2006-01-02T15:04:05Z"))
			}
			_, err := fmt.Fprintf(out, "modified: %t\n", info.Modified)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include build details")
	return cmd
}
