package cmd

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gatebench/internal/barrier"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <run>...",
	Short: "Create (or with --clean remove) start markers for the given runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		prefix, _ := cmd.Flags().GetString("prefix")
		clean, _ := cmd.Flags().GetBool("clean")

		for _, arg := range args {
			run, err := strconv.Atoi(arg)
			if err != nil || run < 1 {
				return errors.Errorf("invalid run number %q", arg)
			}

			if clean {
				path, err := barrier.Clear(dir, prefix, run)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %s\n", path)
				continue
			}
			path, err := barrier.Touch(dir, prefix, run)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🚦 Released %s\n", path)
		}
		return nil
	},
}

func init() {
	triggerCmd.Flags().String("dir", barrier.DefaultDir, "Marker directory")
	triggerCmd.Flags().String("prefix", barrier.DefaultPrefix, "Marker file prefix")
	triggerCmd.Flags().Bool("clean", false, "Remove the markers instead of creating them")
}
