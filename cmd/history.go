package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gatebench/internal/cli"
	"gatebench/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past benchmark series",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		path := viper.GetString("history.path")
		if path == "" {
			p, err := storage.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}

		store, err := storage.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(limit)
		if err != nil {
			return err
		}
		return cli.RenderHistory(cmd.OutOrStdout(), items, time.Now())
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of series to show (0 for all)")
}
