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

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List the configured sensors",
	Long:  `Register the configured sensors without polling and list them with their bindings.`,
	RunE:  runSensorsList,
}

var sensorsShowCmd = &cobra.Command{
	Use:   "show <sensor-id>",
	Short: "Show a sensor with the latest reading of each channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runSensorsShow,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
	sensorsCmd.AddCommand(sensorsShowCmd)
}

func runSensorsList(cmd *cobra.Command, args []string) error {
	rt, err := InitRuntime(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tINTERVAL\tBINDING")
	for _, s := range rt.Service.ListSensors() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Kind, s.Interval, s.Binding)
	}
	return w.Flush()
}

func runSensorsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid sensor id %q", args[0])
	}

	rt, err := InitRuntime(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	detail, err := rt.Service.GetSensor(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s) on %s, every %s\n\n", detail.Sensor.Name, detail.Sensor.Kind, detail.Sensor.Binding(), detail.Sensor.Interval)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tID\tVALUE\tDATE\tSTATUS")
	for _, ch := range detail.Channels {
		value, date := "-", "-"
		if ch.Latest != nil {
			value = fmt.Sprintf("%.2f%s", ch.Latest.Value, ch.Unit)
			date = ch.Latest.DateUTC.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ch.Name, ch.ID, value, date, ch.Status)
	}
	return w.Flush()
}
