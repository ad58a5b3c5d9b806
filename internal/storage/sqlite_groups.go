package storage

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateGroup(ctx context.Context, g *MonitorGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO monitor_groups (id, name, description, color, display_order) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, g.Color, g.DisplayOrder)
	return err
}

func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*MonitorGroup, error) {
	var g MonitorGroup
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id, name, description, color, display_order FROM monitor_groups WHERE id=?`, id).
		Scan(&g.ID, &g.Name, &g.Description, &g.Color, &g.DisplayOrder)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*MonitorGroup, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, name, description, color, display_order FROM monitor_groups ORDER BY display_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*MonitorGroup
	for rows.Next() {
		var g MonitorGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Color, &g.DisplayOrder); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *SQLiteStore) UpdateGroup(ctx context.Context, g *MonitorGroup) error {
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitor_groups SET name=?, description=?, color=?, display_order=? WHERE id=?`,
		g.Name, g.Description, g.Color, g.DisplayOrder, g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteGroup removes the group; member monitors get a null group_id via
// the ON DELETE SET NULL foreign key.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM monitor_groups WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
