package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bind the board and poll all sensors",
	Long:  `Bind the configured ports, register the sensors and poll them until interrupted.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := InitRuntime(cmd.Context(), cfg, log, true)
	if err != nil {
		return err
	}

	log.Info("Serving board " + rt.describe())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Info("Shutdown signal received")
	case <-cmd.Context().Done():
	}

	rt.Close()
	log.Info("PiMaestro stopped")
	return nil
}
