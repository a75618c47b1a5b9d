package main

import (
	"fmt"
	"os"

	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pimaestro",
	Short: "PiMaestro - Raspberry Pi sensor board manager",
	Long: `PiMaestro manages the header pins and bus ports of a Raspberry Pi,
polls the attached sensors and keeps a ledger of their readings.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log = logger.NewLogger(&cfg.Logging)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
