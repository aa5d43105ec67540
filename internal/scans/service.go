// Package scans orchestrates the full scan pipeline: probe the site, score
// the signals, generate recommendations, and persist the immutable scan
// record.
package scans

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentfolio/axscore/internal/recommend"
	"github.com/agentfolio/axscore/internal/scanner"
	"github.com/agentfolio/axscore/internal/score"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

const scanTypeFull = "full"

type Service struct {
	scanner  *scanner.Scanner
	analyzer *recommend.Analyzer
	sites    repository.SiteRepo
	scans    repository.ScanRepo
	recs     repository.RecommendationRepo
	logger   *slog.Logger
}

func NewService(sc *scanner.Scanner, an *recommend.Analyzer, sites repository.SiteRepo, scans repository.ScanRepo, recs repository.RecommendationRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scanner: sc, analyzer: an, sites: sites, scans: scans, recs: recs, logger: logger}
}

// Run scans rawURL for the developer and persists the result. The site row
// is created on first scan of a new URL. A homepage-level failure persists a
// failed scan and returns the error; a cancelled context persists nothing.
func (s *Service) Run(ctx context.Context, developerID int64, rawURL, name string) (*models.Scan, []models.Recommendation, error) {
	normalized, err := scanner.NormalizeURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid url: %w", err)
	}

	site, err := s.sites.GetOrCreateSite(ctx, developerID, normalized, name)
	if err != nil {
		return nil, nil, fmt.Errorf("get or create site: %w", err)
	}

	start := time.Now()
	res, scanErr := s.scanner.Scan(ctx, normalized)
	if scanErr != nil {
		if ctx.Err() != nil {
			// cancelled mid-flight: leave no record behind
			return nil, nil, ctx.Err()
		}
		failed := &models.Scan{
			SiteID:      site.ID,
			DeveloperID: developerID,
			URL:         normalized,
			Signals:     models.SignalSet{},
			ScanType:    scanTypeFull,
			Status:      models.ScanStatusFailed,
			DurationMs:  time.Since(start).Milliseconds(),
		}
		if _, err := s.scans.CreateScan(ctx, failed); err != nil {
			s.logger.Error("persist failed scan", slog.Any("err", err))
		}
		return nil, nil, fmt.Errorf("scan %s: %w", normalized, scanErr)
	}

	recs, modelName, modelOutput := s.analyzer.Analyze(ctx, res.Signals, res.Homepage)

	scan := &models.Scan{
		SiteID:         site.ID,
		DeveloperID:    developerID,
		URL:            normalized,
		Score:          score.Overall(res.Signals),
		CategoryScores: score.ByCategory(res.Signals),
		Signals:        res.Signals,
		ModelOutput:    modelOutput,
		ModelName:      modelName,
		ScanType:       scanTypeFull,
		Status:         models.ScanStatusCompleted,
		DurationMs:     res.Duration.Milliseconds(),
	}
	scanID, err := s.scans.CreateScan(ctx, scan)
	if err != nil {
		return nil, nil, fmt.Errorf("persist scan: %w", err)
	}
	scan.ID = scanID

	for i := range recs {
		recs[i].ScanID = scanID
	}
	if len(recs) > 0 {
		if err := s.recs.CreateRecommendations(ctx, recs); err != nil {
			return nil, nil, fmt.Errorf("persist recommendations: %w", err)
		}
	}

	if err := s.sites.SetLastScan(ctx, site.ID, scanID); err != nil {
		s.logger.Error("update site last scan", slog.Int64("site_id", site.ID), slog.Any("err", err))
	}

	s.logger.Info("scan completed",
		slog.Int64("site_id", site.ID), slog.Int64("scan_id", scanID),
		slog.Int("score", scan.Score), slog.Int64("duration_ms", scan.DurationMs))
	return scan, recs, nil
}
