package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateStatusPage(ctx context.Context, sp *StatusPage) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO status_pages (id, slug, title, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		sp.ID, sp.Slug, sp.Title, sp.Description, now)
	if err != nil {
		return fmt.Errorf("create status page: %w", err)
	}
	sp.CreatedAt = parseTime(now)
	return nil
}

func (s *SQLiteStore) GetStatusPageBySlug(ctx context.Context, slug string) (*StatusPage, error) {
	var sp StatusPage
	var createdAt string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id, slug, title, description, created_at FROM status_pages WHERE slug=?`, slug).
		Scan(&sp.ID, &sp.Slug, &sp.Title, &sp.Description, &createdAt)
	if err != nil {
		return nil, err
	}
	sp.CreatedAt = parseTime(createdAt)
	return &sp, nil
}

func (s *SQLiteStore) ListStatusPages(ctx context.Context) ([]*StatusPage, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, slug, title, description, created_at FROM status_pages ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*StatusPage
	for rows.Next() {
		var sp StatusPage
		var createdAt string
		if err := rows.Scan(&sp.ID, &sp.Slug, &sp.Title, &sp.Description, &createdAt); err != nil {
			return nil, err
		}
		sp.CreatedAt = parseTime(createdAt)
		pages = append(pages, &sp)
	}
	return pages, rows.Err()
}

func (s *SQLiteStore) UpdateStatusPage(ctx context.Context, sp *StatusPage) error {
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE status_pages SET slug=?, title=?, description=? WHERE id=?`,
		sp.Slug, sp.Title, sp.Description, sp.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) DeleteStatusPage(ctx context.Context, id string) error {
	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM status_pages WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) SetStatusPageMonitors(ctx context.Context, pageID string, monitors []StatusPageMonitor) error {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set status page monitors begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM status_page_monitors WHERE page_id=?`, pageID); err != nil {
		return err
	}
	for _, m := range monitors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_page_monitors (page_id, monitor_id, display_name, sort_order) VALUES (?, ?, ?, ?)`,
			pageID, m.MonitorID, m.DisplayName, m.SortOrder); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListStatusPageMonitors(ctx context.Context, pageID string) ([]StatusPageMonitor, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT page_id, monitor_id, display_name, sort_order FROM status_page_monitors
		 WHERE page_id=? ORDER BY sort_order`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []StatusPageMonitor
	for rows.Next() {
		var m StatusPageMonitor
		if err := rows.Scan(&m.PageID, &m.MonitorID, &m.DisplayName, &m.SortOrder); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UptimePercent computes the share of up rows in the window. Returns 100
// when there are no checks.
func (s *SQLiteStore) UptimePercent(ctx context.Context, monitorID string, from, to time.Time) (float64, error) {
	var total, up int64
	err := s.readDB.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(sum(CASE WHEN status=1 THEN 1 ELSE 0 END), 0)
		 FROM monitor_statuses WHERE monitor_id=? AND timestamp >= ? AND timestamp <= ?`,
		monitorID, formatTime(from), formatTime(to)).Scan(&total, &up)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 100, nil
	}
	return float64(up) * 100 / float64(total), nil
}
