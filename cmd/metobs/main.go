package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"metobs/internal/config"
	"metobs/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "metobs",
	Short: "metobs - eKlima weather observation fetcher",
	Long: `metobs queries the met.no eKlima MetDataService for station observations
and prints them as a wide or long table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
			// fetch works without a config file
			cfg = &config.Config{}
			cfg.Eklima.TimeSerieType = "2"
		default:
			return err
		}

		// logs go to stderr, stdout carries the table
		logger = logging.NewWriter(os.Stderr, cfg.Log, "metobs")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
