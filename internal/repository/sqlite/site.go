package sqlite

import (
	"context"
	"database/sql"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

func (r *SQLiteRepo) GetOrCreateSite(ctx context.Context, developerID int64, url, name string) (*models.Site, error) {
	// INSERT OR IGNORE makes creation race-safe against the
	// (developer_id, url) unique index
	if _, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO sites (developer_id, url, name, status, created, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		developerID, url, name, models.SiteStatusActive, now(), now()); err != nil {
		return nil, err
	}

	row := r.conn.QueryRow(ctx, `SELECT id, developer_id, url, name, status, last_scan_id, created, updated FROM sites WHERE developer_id = ? AND url = ?`,
		developerID, url)
	return scanSiteRow(row)
}

func (r *SQLiteRepo) GetSite(ctx context.Context, developerID, id int64) (*models.Site, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, developer_id, url, name, status, last_scan_id, created, updated FROM sites WHERE id = ? AND developer_id = ?`,
		id, developerID)
	s, err := scanSiteRow(row)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *SQLiteRepo) ListActiveSites(ctx context.Context, developerID int64) ([]models.Site, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, developer_id, url, name, status, last_scan_id, created, updated FROM sites WHERE developer_id = ? AND status = ? ORDER BY created`,
		developerID, models.SiteStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Site
	for rows.Next() {
		s, err := scanSiteRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) SetLastScan(ctx context.Context, siteID, scanID int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE sites SET last_scan_id = ?, updated = ? WHERE id = ?`, scanID, now(), siteID)
	return err
}

func (r *SQLiteRepo) RenameSite(ctx context.Context, developerID, id int64, name string) error {
	res, err := r.conn.Exec(ctx, `UPDATE sites SET name = ?, updated = ? WHERE id = ? AND developer_id = ?`,
		name, now(), id, developerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSiteRow(row rowScanner) (*models.Site, error) {
	var s models.Site
	var name sql.NullString
	var lastScan sql.NullInt64
	if err := row.Scan(&s.ID, &s.DeveloperID, &s.URL, &name, &s.Status, &lastScan, &s.Created, &s.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if name.Valid {
		s.Name = name.String
	}
	if lastScan.Valid {
		v := lastScan.Int64
		s.LastScanID = &v
	}

	return &s, nil
}
