package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
)

// counter names accepted by IncrementUsage, mapped to their column. The map
// doubles as a whitelist so the column name is never built from caller input.
var usageColumns = map[string]string{
	"scans":       "scans_used",
	"simulations": "simulations_used",
	"generations": "generations_used",
}

func (r *SQLiteRepo) GetUsage(ctx context.Context, developerID int64, month string) (*models.UsageRecord, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, developer_id, month, scans_used, simulations_used, generations_used, updated FROM usage_records WHERE developer_id = ? AND month = ?`,
		developerID, month)

	var u models.UsageRecord
	if err := row.Scan(&u.ID, &u.DeveloperID, &u.Month, &u.ScansUsed, &u.SimulationsUsed, &u.GenerationsUsed, &u.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &u, nil
}

func (r *SQLiteRepo) IncrementUsage(ctx context.Context, developerID int64, month string, counter string) error {
	col, ok := usageColumns[counter]
	if !ok {
		return fmt.Errorf("unknown usage counter %q", counter)
	}

	// Ensure the month row exists, then bump the counter in place. Both
	// statements are idempotent-safe under concurrent callers: the insert
	// ignores a losing race and the update is a single atomic read-modify-write
	// inside the engine.
	if _, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO usage_records (developer_id, month, updated) VALUES (?, ?, ?)`,
		developerID, month, now()); err != nil {
		return err
	}

	_, err := r.conn.Exec(ctx, `UPDATE usage_records SET `+col+` = `+col+` + 1, updated = ? WHERE developer_id = ? AND month = ?`,
		now(), developerID, month)
	return err
}
