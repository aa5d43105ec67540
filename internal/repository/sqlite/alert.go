package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

const alertColumns = `id, site_id, developer_id, scan_id, baseline_id, alert_type, severity, title, description, category, score_delta, previous_score, current_score, status, acknowledged_at, created`

func (r *SQLiteRepo) CreateAlert(ctx context.Context, a *models.Alert) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("alert is nil")
	}
	if a.Status == "" {
		a.Status = models.AlertStatusActive
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO alerts (site_id, developer_id, scan_id, baseline_id, alert_type, severity, title, description, category, score_delta, previous_score, current_score, status, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SiteID, a.DeveloperID, a.ScanID, a.BaselineID, a.AlertType, a.Severity, a.Title, a.Description, a.Category, a.ScoreDelta, a.PreviousScore, a.CurrentScore, a.Status, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListAlerts(ctx context.Context, developerID int64, status string, limit int) ([]models.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE developer_id = ?`
	args := []any{developerID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	return r.listAlerts(ctx, q, args...)
}

func (r *SQLiteRepo) ListAlertsInRange(ctx context.Context, siteID int64, from, to int64) ([]models.Alert, error) {
	return r.listAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE site_id = ? AND created >= ? AND created < ? ORDER BY created DESC`,
		siteID, from, to)
}

func (r *SQLiteRepo) UpdateAlertStatus(ctx context.Context, developerID, id int64, status string, acknowledgedAt *int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE alerts SET status = ?, acknowledged_at = COALESCE(?, acknowledged_at) WHERE id = ? AND developer_id = ?`,
		status, acknowledgedAt, id, developerID)
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

func (r *SQLiteRepo) listAlerts(ctx context.Context, query string, args ...any) ([]models.Alert, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

func scanAlertRow(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var baselineID, scoreDelta, prevScore, curScore, ackAt sql.NullInt64
	var category sql.NullString
	if err := row.Scan(&a.ID, &a.SiteID, &a.DeveloperID, &a.ScanID, &baselineID, &a.AlertType, &a.Severity, &a.Title, &a.Description, &category, &scoreDelta, &prevScore, &curScore, &a.Status, &ackAt, &a.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if baselineID.Valid {
		v := baselineID.Int64
		a.BaselineID = &v
	}
	if category.Valid {
		a.Category = category.String
	}
	if scoreDelta.Valid {
		v := int(scoreDelta.Int64)
		a.ScoreDelta = &v
	}
	if prevScore.Valid {
		v := int(prevScore.Int64)
		a.PreviousScore = &v
	}
	if curScore.Valid {
		v := int(curScore.Int64)
		a.CurrentScore = &v
	}
	if ackAt.Valid {
		v := ackAt.Int64
		a.AcknowledgedAt = &v
	}

	return &a, nil
}
