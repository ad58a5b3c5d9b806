package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// InsertStatus writes one history row and updates the monitor's last-known
// fields in the same transaction, so last_status always matches the most
// recent row.
func (s *SQLiteStore) InsertStatus(ctx context.Context, rec *MonitorStatus, lastMessage string) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert status begin: %w", err)
	}
	defer tx.Rollback()

	var details any
	if len(rec.Details) > 0 {
		details = string(rec.Details)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monitor_statuses (id, monitor_id, status, message, ping, details, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MonitorID, int(rec.Status), nullStrPtr(rec.Message), rec.Ping, details,
		formatTime(rec.Timestamp),
	); err != nil {
		return fmt.Errorf("insert status row: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE monitors SET last_check_at=?, last_status=?, last_message=?, last_ping=? WHERE id=?`,
		formatTime(rec.Timestamp), int(rec.Status), lastMessage, rec.Ping, rec.MonitorID,
	)
	if err != nil {
		return fmt.Errorf("update last-known state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert status commit: %w", err)
	}
	return nil
}

// ListRecentStatus returns up to limit rows, most recent first.
func (s *SQLiteStore) ListRecentStatus(ctx context.Context, monitorID string, limit int) ([]*MonitorStatus, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, monitor_id, status, message, ping, details, timestamp
		 FROM monitor_statuses WHERE monitor_id=?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*MonitorStatus
	for rows.Next() {
		rec, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) CountStatusSince(ctx context.Context, monitorID string, status Status, after time.Time) (int, error) {
	var n int
	err := s.readDB.QueryRowContext(ctx,
		`SELECT count(*) FROM monitor_statuses WHERE monitor_id=? AND status=? AND timestamp > ?`,
		monitorID, int(status), formatTime(after)).Scan(&n)
	return n, err
}

// LatestStatusByValue returns the most recent row with the given status, or
// nil when none exists.
func (s *SQLiteStore) LatestStatusByValue(ctx context.Context, monitorID string, status Status) (*MonitorStatus, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT id, monitor_id, status, message, ping, details, timestamp
		 FROM monitor_statuses WHERE monitor_id=? AND status=?
		 ORDER BY timestamp DESC, id DESC LIMIT 1`, monitorID, int(status))
	rec, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// LatestHeartbeat returns the most recent row written by the push
// ingestion endpoint (details.source = "push"), or nil when none exists.
// Rows written by the scheduler's own push probes carry no source marker,
// so they never count as heartbeats.
func (s *SQLiteStore) LatestHeartbeat(ctx context.Context, monitorID string) (*MonitorStatus, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT id, monitor_id, status, message, ping, details, timestamp
		 FROM monitor_statuses
		 WHERE monitor_id=? AND json_extract(details, '$.source') = 'push'
		 ORDER BY timestamp DESC, id DESC LIMIT 1`, monitorID)
	rec, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// FirstStatusAfter returns the earliest row with the given status strictly
// after the cutoff, or nil when none exists.
func (s *SQLiteStore) FirstStatusAfter(ctx context.Context, monitorID string, status Status, after time.Time) (*MonitorStatus, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT id, monitor_id, status, message, ping, details, timestamp
		 FROM monitor_statuses WHERE monitor_id=? AND status=? AND timestamp > ?
		 ORDER BY timestamp ASC, id ASC LIMIT 1`, monitorID, int(status), formatTime(after))
	rec, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *SQLiteStore) PurgeStatusBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx,
		`DELETE FROM monitor_statuses WHERE timestamp < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanStatus(row rowScanner) (*MonitorStatus, error) {
	var rec MonitorStatus
	var status int
	var message, details sql.NullString
	var ping sql.NullInt64
	var ts string

	if err := row.Scan(&rec.ID, &rec.MonitorID, &status, &message, &ping, &details, &ts); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	if message.Valid {
		rec.Message = &message.String
	}
	if ping.Valid {
		rec.Ping = &ping.Int64
	}
	if details.Valid {
		rec.Details = json.RawMessage(details.String)
	}
	rec.Timestamp = parseTime(ts)
	return &rec, nil
}
