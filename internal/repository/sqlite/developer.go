package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
)

func (r *SQLiteRepo) CreateDeveloper(ctx context.Context, d *models.Developer) (int64, error) {
	if d == nil {
		return 0, fmt.Errorf("developer is nil")
	}
	if d.Plan == "" {
		d.Plan = "free"
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO developers (name, email, plan, password_hash, updated) VALUES (?, ?, ?, ?, ?)`,
		d.Name, d.Email, d.Plan, d.PasswordHash, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetDeveloperByID(ctx context.Context, id int64) (*models.Developer, error) {
	return r.getDeveloper(ctx, `SELECT id, name, email, plan, password_hash, updated FROM developers WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetDeveloperByEmail(ctx context.Context, email string) (*models.Developer, error) {
	return r.getDeveloper(ctx, `SELECT id, name, email, plan, password_hash, updated FROM developers WHERE email = ?`, email)
}

func (r *SQLiteRepo) getDeveloper(ctx context.Context, query string, arg any) (*models.Developer, error) {
	row := r.conn.QueryRow(ctx, query, arg)
	var d models.Developer
	var pw sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Plan, &pw, &d.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if pw.Valid {
		d.PasswordHash = pw.String
	}

	return &d, nil
}

// ListDeveloperIDs returns every developer id, used by the weekly alert
// fan-out job.
func (r *SQLiteRepo) ListDeveloperIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id FROM developers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}
