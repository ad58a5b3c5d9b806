package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateChannel(ctx context.Context, ch *NotificationChannel) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.Settings == nil {
		ch.Settings = json.RawMessage("{}")
	}
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO notification_channels (id, name, type, enabled, settings, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.Name, ch.Type, boolToInt(ch.Enabled), string(ch.Settings), boolToInt(ch.IsDefault), now, now)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	ch.CreatedAt = parseTime(now)
	ch.UpdatedAt = parseTime(now)
	return nil
}

func (s *SQLiteStore) GetChannel(ctx context.Context, id string) (*NotificationChannel, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT id, name, type, enabled, settings, is_default, created_at, updated_at
		 FROM notification_channels WHERE id=?`, id)
	return scanChannel(row)
}

func (s *SQLiteStore) ListChannels(ctx context.Context) ([]*NotificationChannel, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, name, type, enabled, settings, is_default, created_at, updated_at
		 FROM notification_channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChannels(rows)
}

func (s *SQLiteStore) UpdateChannel(ctx context.Context, ch *NotificationChannel) error {
	if ch.Settings == nil {
		ch.Settings = json.RawMessage("{}")
	}
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE notification_channels SET name=?, type=?, enabled=?, settings=?, is_default=?, updated_at=?
		 WHERE id=?`,
		ch.Name, ch.Type, boolToInt(ch.Enabled), string(ch.Settings), boolToInt(ch.IsDefault),
		formatTime(time.Now()), ch.ID)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) DeleteChannel(ctx context.Context, id string) error {
	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM notification_channels WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetMonitorChannels replaces the monitor's bindings with the given channel
// IDs, all enabled.
func (s *SQLiteStore) SetMonitorChannels(ctx context.Context, monitorID string, channelIDs []string) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set monitor channels begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notification_bindings WHERE monitor_id=?`, monitorID); err != nil {
		return err
	}
	for _, chID := range channelIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notification_bindings (monitor_id, channel_id, enabled) VALUES (?, ?, 1)`,
			monitorID, chID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMonitorChannels resolves the monitor's enabled bindings to their
// channels. Disabled bindings are excluded here; the engine additionally
// skips channels that are themselves disabled.
func (s *SQLiteStore) ListMonitorChannels(ctx context.Context, monitorID string) ([]*NotificationChannel, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT c.id, c.name, c.type, c.enabled, c.settings, c.is_default, c.created_at, c.updated_at
		 FROM notification_channels c
		 JOIN notification_bindings b ON b.channel_id = c.id
		 WHERE b.monitor_id = ? AND b.enabled = 1
		 ORDER BY c.name`, monitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChannels(rows)
}

func (s *SQLiteStore) ListDefaultChannelIDs(ctx context.Context) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id FROM notification_channels WHERE is_default = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectChannels(rows *sql.Rows) ([]*NotificationChannel, error) {
	var channels []*NotificationChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func scanChannel(row rowScanner) (*NotificationChannel, error) {
	var ch NotificationChannel
	var enabled, isDefault int
	var settings, createdAt, updatedAt string

	err := row.Scan(&ch.ID, &ch.Name, &ch.Type, &enabled, &settings, &isDefault, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ch.Enabled = enabled == 1
	ch.IsDefault = isDefault == 1
	ch.Settings = json.RawMessage(settings)
	ch.CreatedAt = parseTime(createdAt)
	ch.UpdatedAt = parseTime(updatedAt)
	return &ch, nil
}
