package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const monitorColumns = `id, name, type, active, interval_secs, timeout_secs, retries, retry_interval_secs,
	resend_interval, upside_down, settings, group_id, description,
	last_check_at, last_status, last_message, last_ping, created_at, updated_at`

func (s *SQLiteStore) CreateMonitor(ctx context.Context, m *Monitor) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Settings == nil {
		m.Settings = json.RawMessage("{}")
	}
	now := formatTime(time.Now())

	var groupID any
	if m.GroupID != nil {
		groupID = *m.GroupID
	}
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO monitors (id, name, type, active, interval_secs, timeout_secs, retries, retry_interval_secs,
		 resend_interval, upside_down, settings, group_id, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Type, boolToInt(m.Active), m.Interval, m.Timeout, m.Retries, m.RetryInterval,
		m.ResendInterval, boolToInt(m.UpsideDown), string(m.Settings), groupID, m.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	m.CreatedAt = parseTime(now)
	m.UpdatedAt = parseTime(now)

	// Bind default channels to the new monitor.
	defaults, err := s.ListDefaultChannelIDs(ctx)
	if err != nil {
		return err
	}
	if len(defaults) > 0 {
		return s.SetMonitorChannels(ctx, m.ID, defaults)
	}
	return nil
}

func (s *SQLiteStore) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	return scanMonitor(row)
}

func (s *SQLiteStore) GetMonitorByPushToken(ctx context.Context, token string) (*Monitor, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors
		 WHERE type = ? AND json_extract(settings, '$.token') = ?`, TypePush, token)
	return scanMonitor(row)
}

func (s *SQLiteStore) ListMonitors(ctx context.Context) ([]*Monitor, error) {
	return s.queryMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors ORDER BY name`)
}

func (s *SQLiteStore) ListActiveMonitors(ctx context.Context) ([]*Monitor, error) {
	return s.queryMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE active = 1 ORDER BY name`)
}

func (s *SQLiteStore) queryMonitors(ctx context.Context, query string, args ...any) ([]*Monitor, error) {
	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

func (s *SQLiteStore) UpdateMonitor(ctx context.Context, m *Monitor) error {
	if m.Settings == nil {
		m.Settings = json.RawMessage("{}")
	}
	now := formatTime(time.Now())

	var groupID any
	if m.GroupID != nil {
		groupID = *m.GroupID
	}
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitors SET name=?, type=?, active=?, interval_secs=?, timeout_secs=?, retries=?,
		 retry_interval_secs=?, resend_interval=?, upside_down=?, settings=?, group_id=?, description=?, updated_at=?
		 WHERE id=?`,
		m.Name, m.Type, boolToInt(m.Active), m.Interval, m.Timeout, m.Retries,
		m.RetryInterval, m.ResendInterval, boolToInt(m.UpsideDown), string(m.Settings), groupID, m.Description, now,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMonitor removes the monitor; history rows and notification bindings
// cascade via foreign keys.
func (s *SQLiteStore) DeleteMonitor(ctx context.Context, id string) error {
	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM monitors WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) SetMonitorActive(ctx context.Context, id string, active bool) error {
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitors SET active=?, updated_at=? WHERE id=?`,
		boolToInt(active), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row rowScanner) (*Monitor, error) {
	var m Monitor
	var active, upsideDown int
	var settings string
	var groupID, lastCheckAt, lastMessage sql.NullString
	var lastStatus, lastPing sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Name, &m.Type, &active, &m.Interval, &m.Timeout, &m.Retries, &m.RetryInterval,
		&m.ResendInterval, &upsideDown, &settings, &groupID, &m.Description,
		&lastCheckAt, &lastStatus, &lastMessage, &lastPing, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.Active = active == 1
	m.UpsideDown = upsideDown == 1
	m.Settings = json.RawMessage(settings)
	if groupID.Valid {
		m.GroupID = &groupID.String
	}
	m.LastCheckAt = parseTimePtr(lastCheckAt)
	if lastStatus.Valid {
		st := Status(lastStatus.Int64)
		m.LastStatus = &st
	}
	if lastMessage.Valid {
		m.LastMessage = lastMessage.String
	}
	if lastPing.Valid {
		m.LastPing = &lastPing.Int64
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}
