// Command schedctl drives the scheduler core as a CLI harness, replacing
// KMain()'s diagnostic boot sequence with demo workloads standing in for
// the original kernel's fixed initcode blob.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rheehot/HYU-ELE3021/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "schedctl",
		Short: "Drive the MLFQ/stride scheduler core from the command line",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (optional)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	root.AddCommand(
		newRunCmd(), newVersionCmd(),
		newBootCmd(), newForkCmd(), newWaitCmd(), newKillCmd(), newShareCmd(), newPsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

func newLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tunables in effect (defaults plus any config file or environment overrides)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("nproc=%d nthread=%d ncpu=%d maxticket=%d maxstride=%d quantum=%v expire=%v\n",
				cfg.NPROC, cfg.NTHREAD, cfg.NCPU, cfg.MaxTicket, cfg.MaxStride, cfg.Quantum, cfg.Expire)
			return nil
		},
	}
}
