package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Store errors
var (
	ErrNotFound    = errors.New("no readings for channel")
	ErrWriteFailed = errors.New("reading write failed")
)

// Appender is the write side used by polling loops
type Appender interface {
	Append(ctx context.Context, reading models.Reading) error
}

// Store is an append-only ledger of readings. There is no update or delete.
type Store interface {
	Appender
	// Latest returns the newest reading of a channel or ErrNotFound
	Latest(ctx context.Context, channelID uuid.UUID) (models.Reading, error)
	// History returns up to limit readings, newest first. A limit <= 0 returns all.
	History(ctx context.Context, channelID uuid.UUID, limit int) ([]models.Reading, error)
}
