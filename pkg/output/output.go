package output

import (
	"context"

	"github.com/sguter90/pimaestro/pkg/models"
)

// Sample is the set of readings produced by one successful read
type Sample struct {
	Sensor   models.Sensor
	Readings []models.Reading
}

// Output mirrors stored readings to an external sink
type Output interface {
	Publish(ctx context.Context, sample Sample) error
	Close() error
}

// Channel returns the channel a reading of the sample belongs to
func (s Sample) Channel(r models.Reading) models.SensorValue {
	for _, ch := range s.Sensor.Channels {
		if ch.ID == r.ChannelID {
			return ch
		}
	}
	return models.SensorValue{ID: r.ChannelID, SensorID: s.Sensor.ID}
}
