package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show pins and ports of the configured board",
	Long:  `Bind the configured ports and sensors without polling and print the resulting pin table.`,
	RunE:  runBoard,
}

var showLevels bool

func init() {
	boardCmd.Flags().BoolVar(&showLevels, "levels", false, "read the current level of every GPIO pin (Raspberry Pi only)")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	rt, err := InitRuntime(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap := rt.Service.GetBoard()

	var levels map[int]bool
	if showLevels {
		r, err := board.OpenRpioLevels()
		if err != nil {
			return err
		}
		levels = board.PinLevels(r, snap.Pins)
		r.Close()
	}

	fmt.Printf("%s (%s)\n\n", snap.Info.Name, snap.Info.Model)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PIN\tNAME\tMODE\tCLAIMANT\tLEVEL")
	for _, p := range snap.Pins {
		level := "-"
		if high, ok := levels[p.Number]; ok {
			level = "low"
			if high {
				level = "high"
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.Number, p.Name, p.Mode, p.Claimant, level)
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tKIND\tPINS")
	for _, port := range snap.Ports {
		pins := make([]string, 0, len(port.Pins))
		for _, pp := range port.Pins {
			pins = append(pins, fmt.Sprintf("%s=%d", pp.Role, pp.Pin))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", port.Name, port.Kind, strings.Join(pins, " "))
	}
	return w.Flush()
}
