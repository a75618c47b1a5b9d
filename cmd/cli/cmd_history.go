package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <channel-id>",
	Short: "Print stored readings of a channel, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of readings, 0 for all")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	channelID, err := uuid.Parse(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid channel id %q", args[0])
	}

	rt, err := InitRuntime(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	readings, err := rt.Service.GetHistory(cmd.Context(), channelID, historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tVALUE")
	for _, r := range readings {
		fmt.Fprintf(w, "%s\t%.2f\n", r.DateUTC.Format(time.RFC3339), r.Value)
	}
	return w.Flush()
}
