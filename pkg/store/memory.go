package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Memory keeps readings in process memory, oldest first per channel
type Memory struct {
	mu       sync.RWMutex
	channels map[uuid.UUID][]models.Reading
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{channels: make(map[uuid.UUID][]models.Reading)}
}

// Append adds a reading. Out-of-order timestamps are inserted in place so
// history stays ordered.
func (m *Memory) Append(ctx context.Context, reading models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	readings := m.channels[reading.ChannelID]
	n := len(readings)
	if n == 0 || !reading.DateUTC.Before(readings[n-1].DateUTC) {
		m.channels[reading.ChannelID] = append(readings, reading)
		return nil
	}

	i := sort.Search(n, func(i int) bool { return readings[i].DateUTC.After(reading.DateUTC) })
	readings = append(readings, models.Reading{})
	copy(readings[i+1:], readings[i:])
	readings[i] = reading
	m.channels[reading.ChannelID] = readings
	return nil
}

// Latest returns the newest reading of a channel
func (m *Memory) Latest(ctx context.Context, channelID uuid.UUID) (models.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	readings := m.channels[channelID]
	if len(readings) == 0 {
		return models.Reading{}, errors.Wrapf(ErrNotFound, "channel %s", channelID)
	}
	return readings[len(readings)-1], nil
}

// History returns a copy of the newest readings of a channel
func (m *Memory) History(ctx context.Context, channelID uuid.UUID, limit int) ([]models.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	readings := m.channels[channelID]
	n := len(readings)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]models.Reading, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, readings[i])
	}
	return out, nil
}
