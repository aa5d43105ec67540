package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
)

const baselineColumns = `id, site_id, developer_id, scan_id, score, category_scores, signals, label, is_current, created`

// CreateBaseline clears the previous current flag and inserts the new row in
// a single transaction so the site always has exactly one current baseline.
func (r *SQLiteRepo) CreateBaseline(ctx context.Context, b *models.Baseline) (int64, error) {
	if b == nil {
		return 0, fmt.Errorf("baseline is nil")
	}

	cats, err := toJSON(b.CategoryScores)
	if err != nil {
		return 0, err
	}
	sigs, err := toJSON(b.Signals)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE baselines SET is_current = 0 WHERE site_id = ? AND is_current = 1`, b.SiteID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO baselines (site_id, developer_id, scan_id, score, category_scores, signals, label, is_current, created) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			b.SiteID, b.DeveloperID, b.ScanID, b.Score, cats, sigs, b.Label, now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) CurrentBaseline(ctx context.Context, siteID int64) (*models.Baseline, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+baselineColumns+` FROM baselines WHERE site_id = ? AND is_current = 1`, siteID)
	return scanBaselineRow(row)
}

func (r *SQLiteRepo) ListBaselines(ctx context.Context, developerID, siteID int64) ([]models.Baseline, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+baselineColumns+` FROM baselines WHERE site_id = ? AND developer_id = ? ORDER BY created DESC`,
		siteID, developerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Baseline
	for rows.Next() {
		b, err := scanBaselineRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}

	return out, rows.Err()
}

func scanBaselineRow(row rowScanner) (*models.Baseline, error) {
	var b models.Baseline
	var cats, sigs string
	var label sql.NullString
	var current int
	if err := row.Scan(&b.ID, &b.SiteID, &b.DeveloperID, &b.ScanID, &b.Score, &cats, &sigs, &label, &current, &b.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if label.Valid {
		b.Label = label.String
	}
	b.IsCurrent = current == 1
	if err := fromJSON(cats, &b.CategoryScores); err != nil {
		return nil, err
	}
	if err := fromJSON(sigs, &b.Signals); err != nil {
		return nil, err
	}

	return &b, nil
}
