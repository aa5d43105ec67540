package api

import (
	"github.com/gorilla/mux"

	"github.com/agentfolio/axscore/internal/alerts"
	"github.com/agentfolio/axscore/internal/baseline"
	"github.com/agentfolio/axscore/internal/benchmark"
	"github.com/agentfolio/axscore/internal/config"
	"github.com/agentfolio/axscore/internal/report"
	"github.com/agentfolio/axscore/internal/scans"
	"github.com/agentfolio/axscore/internal/usage"
	"github.com/agentfolio/axscore/pkg/repository"
)

// Services bundles the wired domain services the routes dispatch to. The
// caller owns construction so the same instances can back the background
// jobs.
type Services struct {
	Scans      *scans.Service
	Baselines  *baseline.Manager
	Alerts     *alerts.Generator
	Benchmark  *benchmark.Service
	Reports    *report.Generator
	Usage      *usage.Tracker
	Developers repository.DeveloperRepo
	Sites      repository.SiteRepo
	ScanRepo   repository.ScanRepo
	RecRepo    repository.RecommendationRepo
	ReportRepo repository.ReportRepo
}

func SetupRoutes(cfg *config.Config, version, buildTime string, s *Services) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(s.Developers, cfg.JWTSecret, cfg.TokenDuration)
	scansHandler := NewScansHandler(s.Scans, s.Usage, s.ScanRepo, s.RecRepo)
	sitesHandler := NewSitesHandler(s.Sites, s.ScanRepo)
	baselinesHandler := NewBaselinesHandler(s.Baselines)
	alertsHandler := NewAlertsHandler(s.Alerts)
	competitorsHandler := NewCompetitorsHandler(s.Benchmark, s.Usage)
	reportsHandler := NewReportsHandler(s.Reports, s.ReportRepo, s.Usage)
	usageHandler := NewUsageHandler(s.Usage)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Scans
	apiV1.HandleFunc("/scans", scansHandler.CreateScan).Methods("POST")
	apiV1.HandleFunc("/scans/{id:[0-9]+}", scansHandler.GetScan).Methods("GET")

	// Sites
	apiV1.HandleFunc("/sites", sitesHandler.ListSites).Methods("GET")
	apiV1.HandleFunc("/sites/{id:[0-9]+}", sitesHandler.GetSite).Methods("GET")
	apiV1.HandleFunc("/sites/{id:[0-9]+}", sitesHandler.RenameSite).Methods("PUT")
	apiV1.HandleFunc("/sites/{id:[0-9]+}/scans", sitesHandler.ListSiteScans).Methods("GET")

	// Baselines
	apiV1.HandleFunc("/sites/{id:[0-9]+}/baselines", baselinesHandler.CreateBaseline).Methods("POST")
	apiV1.HandleFunc("/sites/{id:[0-9]+}/baselines", baselinesHandler.ListBaselines).Methods("GET")
	apiV1.HandleFunc("/sites/{id:[0-9]+}/baselines/current", baselinesHandler.GetCurrentBaseline).Methods("GET")

	// Alerts
	apiV1.HandleFunc("/alerts", alertsHandler.ListAlerts).Methods("GET")
	apiV1.HandleFunc("/alerts/{id:[0-9]+}", alertsHandler.UpdateAlert).Methods("PUT")
	apiV1.HandleFunc("/alerts/sweep", alertsHandler.RunSweep).Methods("POST")

	// Competitor sets
	apiV1.HandleFunc("/competitor-sets", competitorsHandler.CreateSet).Methods("POST")
	apiV1.HandleFunc("/competitor-sets", competitorsHandler.ListSets).Methods("GET")
	apiV1.HandleFunc("/competitor-sets/{id:[0-9]+}", competitorsHandler.GetSet).Methods("GET")
	apiV1.HandleFunc("/competitor-sets/{id:[0-9]+}", competitorsHandler.DeleteSet).Methods("DELETE")
	apiV1.HandleFunc("/competitor-sets/{id:[0-9]+}/compare", competitorsHandler.Compare).Methods("POST")
	apiV1.HandleFunc("/competitor-sets/{id:[0-9]+}/sites/{site_id:[0-9]+}/refresh", competitorsHandler.RefreshCompetitor).Methods("POST")

	// Reports
	apiV1.HandleFunc("/reports", reportsHandler.GenerateReport).Methods("POST")
	apiV1.HandleFunc("/reports", reportsHandler.ListReports).Methods("GET")
	apiV1.HandleFunc("/reports/{site_id:[0-9]+}/{month}", reportsHandler.GetReport).Methods("GET")

	// Usage
	apiV1.HandleFunc("/usage", usageHandler.GetUsage).Methods("GET")

	return r
}
