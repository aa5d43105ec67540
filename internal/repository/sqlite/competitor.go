package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

func (r *SQLiteRepo) CreateCompetitorSet(ctx context.Context, set *models.CompetitorSet, sites []models.CompetitorSite) (int64, error) {
	if set == nil {
		return 0, fmt.Errorf("competitor set is nil")
	}

	var id int64
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO competitor_sets (developer_id, name, description, industry, created) VALUES (?, ?, ?, ?, ?)`,
			set.DeveloperID, set.Name, set.Description, set.Industry, now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}

		for _, s := range sites {
			if _, err := tx.ExecContext(ctx, `INSERT INTO competitor_sites (set_id, url, name) VALUES (?, ?, ?)`,
				id, s.URL, s.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) GetCompetitorSet(ctx context.Context, developerID, id int64) (*models.CompetitorSet, []models.CompetitorSite, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, developer_id, name, description, industry, created FROM competitor_sets WHERE id = ? AND developer_id = ?`,
		id, developerID)
	set, err := scanCompetitorSetRow(row)
	if err != nil {
		return nil, nil, err
	}
	if set == nil {
		return nil, nil, fmt.Errorf("competitor set: %w", repository.ErrNotFound)
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, set_id, url, name, latest_score, latest_scan_id, last_scanned FROM competitor_sites WHERE set_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var sites []models.CompetitorSite
	for rows.Next() {
		var s models.CompetitorSite
		var name sql.NullString
		var score, scanID, scanned sql.NullInt64
		if err := rows.Scan(&s.ID, &s.SetID, &s.URL, &name, &score, &scanID, &scanned); err != nil {
			return nil, nil, err
		}

		if name.Valid {
			s.Name = name.String
		}
		if score.Valid {
			v := int(score.Int64)
			s.LatestScore = &v
		}
		if scanID.Valid {
			v := scanID.Int64
			s.LatestScanID = &v
		}
		if scanned.Valid {
			v := scanned.Int64
			s.LastScanned = &v
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return set, sites, nil
}

func (r *SQLiteRepo) ListCompetitorSets(ctx context.Context, developerID int64) ([]models.CompetitorSet, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, developer_id, name, description, industry, created FROM competitor_sets WHERE developer_id = ? ORDER BY created DESC`, developerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CompetitorSet
	for rows.Next() {
		set, err := scanCompetitorSetRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *set)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteCompetitorSet(ctx context.Context, developerID, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM competitor_sets WHERE id = ? AND developer_id = ?`, id, developerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("competitor set: %w", repository.ErrNotFound)
		}
		// member rows cascade when foreign keys are on; delete explicitly so
		// the behavior does not depend on the pragma
		_, err = tx.ExecContext(ctx, `DELETE FROM competitor_sites WHERE set_id = ?`, id)
		return err
	})
}

func (r *SQLiteRepo) UpdateCompetitorScore(ctx context.Context, siteID int64, score int, scanID int64) error {
	var scan any
	if scanID > 0 {
		scan = scanID
	}
	_, err := r.conn.Exec(ctx, `UPDATE competitor_sites SET latest_score = ?, latest_scan_id = ?, last_scanned = ? WHERE id = ?`,
		score, scan, now(), siteID)
	return err
}

func scanCompetitorSetRow(row rowScanner) (*models.CompetitorSet, error) {
	var set models.CompetitorSet
	var desc, industry sql.NullString
	if err := row.Scan(&set.ID, &set.DeveloperID, &set.Name, &desc, &industry, &set.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if desc.Valid {
		set.Description = desc.String
	}
	if industry.Valid {
		set.Industry = industry.String
	}

	return &set, nil
}
