package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

const scanColumns = `id, site_id, developer_id, url, score, category_scores, signals, model_output, model_name, scan_type, status, duration_ms, created`

func (r *SQLiteRepo) CreateScan(ctx context.Context, s *models.Scan) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("scan is nil")
	}

	cats, err := toJSON(s.CategoryScores)
	if err != nil {
		return 0, err
	}
	sigs, err := toJSON(s.Signals)
	if err != nil {
		return 0, err
	}

	created := s.Created
	if created == 0 {
		created = now()
	}
	res, err := r.conn.Exec(ctx, `INSERT INTO scans (site_id, developer_id, url, score, category_scores, signals, model_output, model_name, scan_type, status, duration_ms, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SiteID, s.DeveloperID, s.URL, s.Score, cats, sigs, s.ModelOutput, s.ModelName, s.ScanType, s.Status, s.DurationMs, created)
	if err != nil {
		return 0, err
	}
	s.Created = created

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetScan(ctx context.Context, developerID, id int64) (*models.Scan, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ? AND developer_id = ?`, id, developerID)
	s, err := scanScanRow(row)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *SQLiteRepo) LatestCompletedScan(ctx context.Context, siteID int64) (*models.Scan, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+scanColumns+` FROM scans WHERE site_id = ? AND status = ? ORDER BY created DESC LIMIT 1`,
		siteID, models.ScanStatusCompleted)
	return scanScanRow(row)
}

func (r *SQLiteRepo) ListCompletedScans(ctx context.Context, siteID int64, from, to int64, limit int) ([]models.Scan, error) {
	q := `SELECT ` + scanColumns + ` FROM scans WHERE site_id = ? AND status = ? AND created >= ? AND created < ? ORDER BY created DESC`
	args := []any{siteID, models.ScanStatusCompleted, from, to}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Scan
	for rows.Next() {
		s, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}

	return out, rows.Err()
}

func scanScanRow(row rowScanner) (*models.Scan, error) {
	var s models.Scan
	var cats, sigs string
	var modelOutput sql.NullString
	if err := row.Scan(&s.ID, &s.SiteID, &s.DeveloperID, &s.URL, &s.Score, &cats, &sigs, &modelOutput, &s.ModelName, &s.ScanType, &s.Status, &s.DurationMs, &s.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if modelOutput.Valid {
		s.ModelOutput = modelOutput.String
	}
	if err := fromJSON(cats, &s.CategoryScores); err != nil {
		return nil, err
	}
	if err := fromJSON(sigs, &s.Signals); err != nil {
		return nil, err
	}

	return &s, nil
}
