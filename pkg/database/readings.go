package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/sguter90/pimaestro/pkg/store"
)

var _ store.Store = (*ReadingStore)(nil)

// Append inserts one reading
func (rs *ReadingStore) Append(ctx context.Context, reading models.Reading) error {
	query := `
        INSERT INTO sensor_readings (channel_id, value, date_utc)
        VALUES ($1, $2, $3)
    `

	if _, err := rs.ExecWithHealthCheck(ctx, query, reading.ChannelID, reading.Value, reading.DateUTC.UTC()); err != nil {
		return errors.Wrapf(store.ErrWriteFailed, "channel %s: %v", reading.ChannelID, err)
	}
	return nil
}

// Latest returns the newest reading of a channel
func (rs *ReadingStore) Latest(ctx context.Context, channelID uuid.UUID) (models.Reading, error) {
	query := `
        SELECT channel_id, value, date_utc
        FROM sensor_readings
        WHERE channel_id = $1
        ORDER BY date_utc DESC, id DESC
        LIMIT 1
    `

	row, err := rs.QueryRowWithHealthCheck(ctx, query, channelID)
	if err != nil {
		return models.Reading{}, err
	}

	var r models.Reading
	if err := row.Scan(&r.ChannelID, &r.Value, &r.DateUTC); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reading{}, errors.Wrapf(store.ErrNotFound, "channel %s", channelID)
		}
		return models.Reading{}, errors.Wrap(err, "failed to query latest reading")
	}
	r.DateUTC = r.DateUTC.UTC()
	return r, nil
}

// History returns up to limit readings, newest first. A limit <= 0 returns all.
func (rs *ReadingStore) History(ctx context.Context, channelID uuid.UUID, limit int) ([]models.Reading, error) {
	query := `
        SELECT channel_id, value, date_utc
        FROM sensor_readings
        WHERE channel_id = $1
        ORDER BY date_utc DESC, id DESC
    `
	args := []interface{}{channelID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := rs.QueryWithHealthCheck(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reading history")
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ChannelID, &r.Value, &r.DateUTC); err != nil {
			return nil, errors.Wrap(err, "failed to scan reading")
		}
		r.DateUTC = r.DateUTC.UTC()
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// EnsureChannels upserts the channel metadata of a sensor
func (rs *ReadingStore) EnsureChannels(ctx context.Context, sensor models.Sensor) error {
	query := `
        INSERT INTO sensor_channels (id, sensor_id, sensor_name, sensor_kind, channel, unit)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            sensor_name = EXCLUDED.sensor_name,
            unit = EXCLUDED.unit,
            updated_at = CURRENT_TIMESTAMP
    `

	for _, ch := range sensor.Channels {
		if _, err := rs.ExecWithHealthCheck(ctx, query, ch.ID, sensor.ID, sensor.Name, string(sensor.Kind), ch.Name, ch.Unit); err != nil {
			return errors.Wrapf(err, "failed to upsert channel %s of sensor %s", ch.Name, sensor.Name)
		}
	}
	return nil
}
