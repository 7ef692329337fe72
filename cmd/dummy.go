package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gatebench/internal/dummy"
	"gatebench/internal/logging"
)

// --- Dummy Subcommand ---
var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a fake gateway that answers uploads with a CID",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		failRate, _ := cmd.Flags().GetFloat64("fail-rate")
		latency, _ := cmd.Flags().GetDuration("latency")
		level, _ := cmd.Flags().GetString("log-level")

		log, err := logging.New(level, false)
		if err != nil {
			return err
		}
		defer log.Sync()

		server, err := dummy.Start(dummy.ServerConfig{
			Port:     port,
			FailRate: failRate,
			Latency:  latency,
			Log:      log.Named("dummy"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		fmt.Println("\n🛑 Shutting down dummy gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 1313, "Port to run dummy gateway on")
	dummyCmd.Flags().Float64("fail-rate", 0, "Share of uploads answered with an error (0-1)")
	dummyCmd.Flags().Duration("latency", 0, "Delay added to every upload")
	dummyCmd.Flags().String("log-level", "info", "debug, info, warn or error")
}
