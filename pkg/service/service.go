package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/sguter90/pimaestro/pkg/scheduler"
	"github.com/sguter90/pimaestro/pkg/sensors"
	"github.com/sguter90/pimaestro/pkg/store"
)

// ChannelStatus summarises the freshness of a channel
type ChannelStatus string

// Channel statuses
const (
	ChannelStatusOK       ChannelStatus = "ok"
	ChannelStatusNoData   ChannelStatus = "no_data"
	ChannelStatusDegraded ChannelStatus = "degraded"
)

// StatusProvider reports polling state per sensor
type StatusProvider interface {
	Status(id uuid.UUID) (scheduler.Status, bool)
}

// SensorSummary is one row of the sensor listing
type SensorSummary struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Kind     models.SensorKind  `json:"kind"`
	Interval time.Duration      `json:"interval"`
	Binding  string             `json:"binding"`
	State    models.SensorState `json:"state"`
}

// ChannelDetail is a channel with its newest reading
type ChannelDetail struct {
	models.SensorValue
	Latest *models.Reading `json:"latest,omitempty"`
	Status ChannelStatus   `json:"status"`
}

// SensorDetail is the full view of one sensor
type SensorDetail struct {
	Sensor      models.Sensor         `json:"sensor"`
	State       models.SensorState    `json:"state"`
	Diagnostics scheduler.Diagnostics `json:"diagnostics"`
	Channels    []ChannelDetail       `json:"channels"`
}

// Service is the read-side query interface over the board, the sensors and
// the stored readings
type Service struct {
	board   *board.Board
	sensors *sensors.Registry
	status  StatusProvider
	store   store.Store
	logger  *logger.Logger
}

// New creates a service. status may be nil when nothing is polling.
func New(b *board.Board, reg *sensors.Registry, status StatusProvider, st store.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		board:   b,
		sensors: reg,
		status:  status,
		store:   st,
		logger:  log.WithComponent("service"),
	}
}

// GetBoard returns the board identity, pins with their claims and bound ports
func (s *Service) GetBoard() board.Snapshot {
	return s.board.Snapshot()
}

// ListSensors returns all sensors in registration order
func (s *Service) ListSensors() []SensorSummary {
	list := s.sensors.List()
	summaries := make([]SensorSummary, 0, len(list))
	for _, sensor := range list {
		st, _ := s.statusOf(sensor.ID)
		summaries = append(summaries, SensorSummary{
			ID:       sensor.ID,
			Name:     sensor.Name,
			Kind:     sensor.Kind,
			Interval: sensor.Interval,
			Binding:  sensor.Binding(),
			State:    st.State,
		})
	}
	return summaries
}

// GetSensor returns a sensor with its polling diagnostics and the latest
// reading of every channel
func (s *Service) GetSensor(ctx context.Context, id uuid.UUID) (SensorDetail, error) {
	sensor, err := s.sensors.Get(id)
	if err != nil {
		return SensorDetail{}, err
	}

	st, _ := s.statusOf(id)
	detail := SensorDetail{
		Sensor:      sensor,
		State:       st.State,
		Diagnostics: st.Diagnostics,
		Channels:    make([]ChannelDetail, 0, len(sensor.Channels)),
	}

	for _, ch := range sensor.Channels {
		cd := ChannelDetail{SensorValue: ch, Status: ChannelStatusNoData}

		latest, err := s.store.Latest(ctx, ch.ID)
		switch {
		case err == nil:
			cd.Latest = &latest
			cd.Status = ChannelStatusOK
		case !errors.Is(err, store.ErrNotFound):
			return SensorDetail{}, errors.Wrapf(err, "latest reading of %s", ch.Name)
		}

		if st.State == models.SensorStateDegraded {
			cd.Status = ChannelStatusDegraded
		}
		detail.Channels = append(detail.Channels, cd)
	}

	return detail, nil
}

// GetHistory returns up to limit readings of a channel, newest first
func (s *Service) GetHistory(ctx context.Context, channelID uuid.UUID, limit int) ([]models.Reading, error) {
	return s.store.History(ctx, channelID, limit)
}

func (s *Service) statusOf(id uuid.UUID) (scheduler.Status, bool) {
	if s.status != nil {
		if st, ok := s.status.Status(id); ok {
			return st, true
		}
	}
	return scheduler.Status{State: models.SensorStateIdle}, false
}
