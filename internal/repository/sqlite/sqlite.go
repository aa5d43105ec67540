package sqlite

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentfolio/axscore/internal/db"
	"github.com/agentfolio/axscore/pkg/repository"
)

// SQLiteRepo implements the repository interfaces using the internal DB
// wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.DeveloperRepo = (*SQLiteRepo)(nil)
var _ repository.SiteRepo = (*SQLiteRepo)(nil)
var _ repository.ScanRepo = (*SQLiteRepo)(nil)
var _ repository.RecommendationRepo = (*SQLiteRepo)(nil)
var _ repository.BaselineRepo = (*SQLiteRepo)(nil)
var _ repository.AlertRepo = (*SQLiteRepo)(nil)
var _ repository.CompetitorRepo = (*SQLiteRepo)(nil)
var _ repository.ReportRepo = (*SQLiteRepo)(nil)
var _ repository.UsageRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

// toJSON marshals a value for a TEXT column holding JSON.
func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json column: %w", err)
	}
	return string(b), nil
}

// fromJSON unmarshals a TEXT column into out, tolerating empty strings.
func fromJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}
