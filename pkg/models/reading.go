package models

import (
	"time"

	"github.com/google/uuid"
)

// Reading represents a single measurement of one sensor channel
type Reading struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Value     float64   `json:"value"`
	DateUTC   time.Time `json:"date_utc"`
}
