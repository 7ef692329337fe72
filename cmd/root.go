package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gatebench/internal/banner"
	"gatebench/internal/cli"
	"gatebench/internal/config"
	"gatebench/internal/logging"
	"gatebench/internal/runner"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gatebench",
	Short: "Gatebench - upload throughput benchmark for content-addressed gateways",
	Long: `
Gatebench measures how fast a gateway ingests files.

Each run writes one random payload per thread, waits for a start marker
(/tmp/trigger-<run>) so many machines can start together, uploads every
payload at once and reports the transfer rate.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		// The live view owns the terminal; keep diagnostics to warnings and up.
		log, err := logging.New(cfg.Log.Level, cfg.Bench.Silent || cfg.Bench.TUI)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.Start(ctx, cfg, log, cmd.OutOrStdout())
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// flagKeys binds each root flag to its config key.
var flagKeys = map[string]string{
	"continuous": "bench.runs",
	"threads":    "bench.workers",
	"blobsize":   "bench.blob_size",
	"label":      "bench.label",
	"silent":     "bench.silent",
	"mode":       "bench.mode",
	"file":       "bench.source_file",
	"tui":        "bench.tui",
	"report":     "report.save",
	"out":        "report.out",
	"reset":      "gateway.reset",
	"url":        "gateway.upload_url",
	"log-level":  "log.level",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd, triggerCmd, historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gatebench.yaml)")

	f := rootCmd.Flags()
	f.IntP("continuous", "c", 1, "Number of runs")
	f.IntP("threads", "t", 1, "Parallel uploads per run")
	f.IntP("blobsize", "b", 50, "Payload size per thread in MiB")
	f.StringP("label", "l", "MooseFS", "Storage backend label, selects the gateway unit on reset")
	f.BoolP("silent", "s", false, "Skip the header and informational logs")
	f.BoolP("report", "r", false, "Write a report file per run and for the series")
	f.String("mode", "parallel", "parallel or sequential")
	f.String("file", "", "Upload an existing file instead of generated payloads (sequential mode)")
	f.Bool("tui", false, "Show a live progress view")
	f.StringP("out", "o", "", "Output filename prefix for per-upload CSV")
	f.Bool("reset", false, "Restart the gateway with an empty cache before every run")
	f.String("url", runner.DefaultEndpoint, "Gateway upload endpoint")
	f.String("log-level", "info", "debug, info, warn or error")

	for name, key := range flagKeys {
		viper.BindPFlag(key, f.Lookup(name))
	}
	config.SetDefaults(viper.GetViper())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".gatebench")
		}
	}
	viper.SetEnvPrefix("GATEBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
			os.Exit(1)
		}
	}
}
