package influx

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/output"
)

// Measurement is the InfluxDB measurement every reading is written to
const Measurement = "sensor_reading"

// Output writes readings as points, one per channel
type Output struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// New creates a blocking writer for the configured org and bucket
func New(cfg config.InfluxConfig) *Output {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Output{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (o *Output) Publish(ctx context.Context, sample output.Sample) error {
	points := make([]*write.Point, 0, len(sample.Readings))
	for _, r := range sample.Readings {
		ch := sample.Channel(r)
		points = append(points, influxdb2.NewPoint(Measurement,
			map[string]string{
				"sensor_id": sample.Sensor.ID.String(),
				"sensor":    sample.Sensor.Name,
				"kind":      string(sample.Sensor.Kind),
				"channel":   ch.Name,
				"unit":      ch.Unit,
			},
			map[string]interface{}{"value": r.Value},
			r.DateUTC,
		))
	}
	if len(points) == 0 {
		return nil
	}

	if err := o.writer.WritePoint(ctx, points...); err != nil {
		return errors.Wrap(err, "influx write")
	}
	return nil
}

func (o *Output) Close() error {
	if o.client != nil {
		o.client.Close()
	}
	return nil
}
