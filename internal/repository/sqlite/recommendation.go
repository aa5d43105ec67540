package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
)

func (r *SQLiteRepo) CreateRecommendations(ctx context.Context, recs []models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO recommendations (scan_id, category, priority, title, description, current_state, suggested_fix, impact_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range recs {
			if rec.ScanID == 0 {
				return fmt.Errorf("recommendation missing scan id")
			}
			if _, err := stmt.ExecContext(ctx, rec.ScanID, rec.Category, rec.Priority, rec.Title, rec.Description, rec.CurrentState, rec.SuggestedFix, rec.ImpactScore); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepo) ListRecommendations(ctx context.Context, scanID int64) ([]models.Recommendation, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, scan_id, category, priority, title, description, current_state, suggested_fix, impact_score FROM recommendations WHERE scan_id = ? ORDER BY id`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var curState, fix sql.NullString
		var impact sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.ScanID, &rec.Category, &rec.Priority, &rec.Title, &rec.Description, &curState, &fix, &impact); err != nil {
			return nil, err
		}

		if curState.Valid {
			rec.CurrentState = curState.String
		}
		if fix.Valid {
			rec.SuggestedFix = fix.String
		}
		if impact.Valid {
			v := int(impact.Int64)
			rec.ImpactScore = &v
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}
