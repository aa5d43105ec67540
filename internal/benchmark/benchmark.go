// Package benchmark maintains competitor sets and ranks the developer's own
// sites against them. Comparison is a pure snapshot over cached competitor
// scores plus the developer's latest completed scans; nothing is persisted.
package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/agentfolio/axscore/internal/scanner"
	"github.com/agentfolio/axscore/internal/score"
	"github.com/agentfolio/axscore/pkg/models"
	"github.com/agentfolio/axscore/pkg/repository"
)

type Service struct {
	competitors repository.CompetitorRepo
	sites       repository.SiteRepo
	scans       repository.ScanRepo
	scanner     *scanner.Scanner
	logger      *slog.Logger
}

func NewService(competitors repository.CompetitorRepo, sites repository.SiteRepo, scans repository.ScanRepo, sc *scanner.Scanner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{competitors: competitors, sites: sites, scans: scans, scanner: sc, logger: logger}
}

// SetInput describes a new competitor set.
type SetInput struct {
	Name        string
	Description string
	Industry    string
	Sites       []SiteInput
}

type SiteInput struct {
	URL  string
	Name string
}

// CreateSet inserts the set with its member sites.
func (s *Service) CreateSet(ctx context.Context, developerID int64, in SetInput) (*models.CompetitorSet, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("set name is required")
	}

	members := make([]models.CompetitorSite, 0, len(in.Sites))
	for _, m := range in.Sites {
		u, err := scanner.NormalizeURL(m.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid competitor url %q: %w", m.URL, err)
		}
		members = append(members, models.CompetitorSite{URL: u, Name: m.Name})
	}

	set := &models.CompetitorSet{
		DeveloperID: developerID,
		Name:        in.Name,
		Description: in.Description,
		Industry:    in.Industry,
	}
	id, err := s.competitors.CreateCompetitorSet(ctx, set, members)
	if err != nil {
		return nil, fmt.Errorf("create competitor set: %w", err)
	}
	set.ID = id
	return set, nil
}

func (s *Service) ListSets(ctx context.Context, developerID int64) ([]models.CompetitorSet, error) {
	return s.competitors.ListCompetitorSets(ctx, developerID)
}

func (s *Service) GetSet(ctx context.Context, developerID, id int64) (*models.CompetitorSet, []models.CompetitorSite, error) {
	return s.competitors.GetCompetitorSet(ctx, developerID, id)
}

func (s *Service) DeleteSet(ctx context.Context, developerID, id int64) error {
	return s.competitors.DeleteCompetitorSet(ctx, developerID, id)
}

// SiteRank is one developer site's position in the comparison.
type SiteRank struct {
	SiteID         int64  `json:"site_id"`
	URL            string `json:"url"`
	Name           string `json:"name,omitempty"`
	Score          *int   `json:"score,omitempty"`
	PercentileRank *int   `json:"percentile_rank,omitempty"`
}

// Comparison is the snapshot result of one benchmark run.
type Comparison struct {
	SetID       int64                   `json:"set_id"`
	SetName     string                  `json:"set_name"`
	Competitors []models.CompetitorSite `json:"competitors"`
	Sites       []SiteRank              `json:"sites"`
	PooledCount int                     `json:"pooled_count"`
}

// RunComparison pools every known score (cached competitor scores plus the
// developer's latest completed scan per site) and computes each developer
// site's percentile rank against the rest of the pool. Sites with no
// completed scan rank as null.
func (s *Service) RunComparison(ctx context.Context, developerID, setID int64) (*Comparison, error) {
	set, members, err := s.competitors.GetCompetitorSet(ctx, developerID, setID)
	if err != nil {
		return nil, err
	}

	own, err := s.sites.ListActiveSites(ctx, developerID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	pooled := make([]int, 0, len(members)+len(own))
	for _, m := range members {
		if m.LatestScore != nil {
			pooled = append(pooled, *m.LatestScore)
		}
	}

	ranks := make([]SiteRank, 0, len(own))
	for _, site := range own {
		rank := SiteRank{SiteID: site.ID, URL: site.URL, Name: site.Name}
		latest, err := s.scans.LatestCompletedScan(ctx, site.ID)
		if err != nil {
			return nil, fmt.Errorf("latest scan for site %d: %w", site.ID, err)
		}
		if latest != nil {
			sc := latest.Score
			rank.Score = &sc
			pooled = append(pooled, sc)
		}
		ranks = append(ranks, rank)
	}
	sort.Ints(pooled)

	for i := range ranks {
		if ranks[i].Score == nil {
			continue
		}
		// rank each site against the pool minus its own entry, so a lone
		// site among N competitors is ranked out of N
		r := percentile(pooled, *ranks[i].Score)
		ranks[i].PercentileRank = &r
	}

	return &Comparison{
		SetID:       set.ID,
		SetName:     set.Name,
		Competitors: members,
		Sites:       ranks,
		PooledCount: len(pooled),
	}, nil
}

// percentile returns round(100 * below / (len(pooled)-1)) where below counts
// scores strictly less than v. pooled contains v itself, which is excluded
// from the denominator.
func percentile(pooled []int, v int) int {
	total := len(pooled) - 1
	if total <= 0 {
		return 0
	}
	below := sort.SearchInts(pooled, v)
	return int(math.Round(100 * float64(below) / float64(total)))
}

// RefreshCompetitor rescans one competitor site and updates its cached
// score. Competitor pages get scored but never analyzed for
// recommendations.
func (s *Service) RefreshCompetitor(ctx context.Context, developerID, setID, competitorSiteID int64) error {
	_, members, err := s.competitors.GetCompetitorSet(ctx, developerID, setID)
	if err != nil {
		return err
	}

	var target *models.CompetitorSite
	for i := range members {
		if members[i].ID == competitorSiteID {
			target = &members[i]
			break
		}
	}
	if target == nil {
		return repository.ErrNotFound
	}

	res, err := s.scanner.Scan(ctx, target.URL)
	if err != nil {
		return fmt.Errorf("scan competitor %s: %w", target.URL, err)
	}

	sc := score.Overall(res.Signals)
	if err := s.competitors.UpdateCompetitorScore(ctx, competitorSiteID, sc, 0); err != nil {
		return fmt.Errorf("update competitor score: %w", err)
	}
	s.logger.Info("competitor refreshed",
		slog.Int64("set_id", setID), slog.String("url", target.URL),
		slog.Int("score", sc), slog.Duration("took", res.Duration))
	return nil
}
