package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentfolio/axscore/pkg/models"
)

const reportColumns = `id, developer_id, site_id, month, title, summary, score_trend, category_trends, top_regressions, top_improvements, action_items, alert_count, model_name, status, created, updated`

func (r *SQLiteRepo) GetReport(ctx context.Context, developerID, siteID int64, month string) (*models.MonthlyReport, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+reportColumns+` FROM monthly_reports WHERE developer_id = ? AND site_id = ? AND month = ?`,
		developerID, siteID, month)
	return scanReportRow(row)
}

func (r *SQLiteRepo) CreateReport(ctx context.Context, rep *models.MonthlyReport) (int64, error) {
	if rep == nil {
		return 0, fmt.Errorf("report is nil")
	}

	cols, err := reportJSONColumns(rep)
	if err != nil {
		return 0, err
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO monthly_reports (developer_id, site_id, month, title, summary, score_trend, category_trends, top_regressions, top_improvements, action_items, alert_count, model_name, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.DeveloperID, rep.SiteID, rep.Month, rep.Title, rep.Summary, cols[0], cols[1], cols[2], cols[3], cols[4], rep.AlertCount, rep.ModelName, rep.Status, ts, ts)
	if err != nil {
		return 0, err
	}
	rep.Created = ts
	rep.Updated = ts

	return res.LastInsertId()
}

func (r *SQLiteRepo) UpdateReport(ctx context.Context, rep *models.MonthlyReport) error {
	if rep == nil {
		return fmt.Errorf("report is nil")
	}

	cols, err := reportJSONColumns(rep)
	if err != nil {
		return err
	}

	ts := now()
	_, err = r.conn.Exec(ctx, `UPDATE monthly_reports SET title = ?, summary = ?, score_trend = ?, category_trends = ?, top_regressions = ?, top_improvements = ?, action_items = ?, alert_count = ?, model_name = ?, status = ?, updated = ? WHERE id = ?`,
		rep.Title, rep.Summary, cols[0], cols[1], cols[2], cols[3], cols[4], rep.AlertCount, rep.ModelName, rep.Status, ts, rep.ID)
	if err != nil {
		return err
	}
	rep.Updated = ts
	return nil
}

func (r *SQLiteRepo) ListReports(ctx context.Context, developerID int64) ([]models.MonthlyReport, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+reportColumns+` FROM monthly_reports WHERE developer_id = ? ORDER BY month DESC, site_id`, developerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MonthlyReport
	for rows.Next() {
		rep, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}

	return out, rows.Err()
}

// reportJSONColumns marshals the five list-valued columns in insert order.
func reportJSONColumns(rep *models.MonthlyReport) ([5]string, error) {
	var cols [5]string
	for i, v := range []any{rep.ScoreTrend, rep.CategoryTrends, rep.TopRegressions, rep.TopImprovements, rep.ActionItems} {
		s, err := toJSON(v)
		if err != nil {
			return cols, err
		}
		cols[i] = s
	}
	return cols, nil
}

func scanReportRow(row rowScanner) (*models.MonthlyReport, error) {
	var rep models.MonthlyReport
	var trend, cats, regs, imps, actions string
	if err := row.Scan(&rep.ID, &rep.DeveloperID, &rep.SiteID, &rep.Month, &rep.Title, &rep.Summary, &trend, &cats, &regs, &imps, &actions, &rep.AlertCount, &rep.ModelName, &rep.Status, &rep.Created, &rep.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	for _, p := range []struct {
		raw  string
		dest any
	}{
		{trend, &rep.ScoreTrend},
		{cats, &rep.CategoryTrends},
		{regs, &rep.TopRegressions},
		{imps, &rep.TopImprovements},
		{actions, &rep.ActionItems},
	} {
		if err := fromJSON(p.raw, p.dest); err != nil {
			return nil, err
		}
	}

	return &rep, nil
}
