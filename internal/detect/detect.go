// Package detect holds the pure regression and volatility math. No I/O;
// never errors on well-formed input.
package detect

import (
	"math"

	"github.com/agentfolio/axscore/pkg/models"
)

// DefaultRegressionThreshold is the per-category drop (in points) that
// counts as a regression.
const DefaultRegressionThreshold = 5

// ImprovementThreshold is the overall-score gain that counts as an
// improvement.
const ImprovementThreshold = 5

// VolatilityStddev is the population standard deviation above which a score
// window is considered volatile.
const VolatilityStddev = 8.0

// VolatilityWindowSize caps how many recent scans feed the volatility
// computation. The window is count-based: callers fetch scans from a
// trailing date range, but only the most recent scans up to this cap are
// sampled.
const VolatilityWindowSize = 5

// Regression is one category whose score dropped past the threshold.
type Regression struct {
	Category      string
	BaselineScore int
	CurrentScore  int
	Delta         int
}

// Severity classifies a regression delta: below -15 critical, -15 to -10
// warning, otherwise info.
func (r Regression) Severity() string {
	switch {
	case r.Delta < -15:
		return models.SeverityCritical
	case r.Delta <= -10:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// RegressionReport is the outcome of comparing a scan against a baseline.
type RegressionReport struct {
	Regressions  []Regression
	OverallDelta int
}

// Improved reports whether the overall score rose past the improvement
// threshold. Independent of per-category regressions.
func (r RegressionReport) Improved() bool {
	return r.OverallDelta > ImprovementThreshold
}

// DetectRegression compares a scan's category scores against the baseline
// snapshot. Every category present in the baseline is checked; a drop
// greater than threshold points is a regression.
func DetectRegression(baseline *models.Baseline, scan *models.Scan, threshold int) RegressionReport {
	if threshold <= 0 {
		threshold = DefaultRegressionThreshold
	}

	report := RegressionReport{OverallDelta: scan.Score - baseline.Score}
	for cat, baseScore := range baseline.CategoryScores {
		cur, ok := scan.CategoryScores[cat]
		if !ok {
			continue
		}
		delta := cur - baseScore
		if delta < -threshold {
			report.Regressions = append(report.Regressions, Regression{
				Category:      cat,
				BaselineScore: baseScore,
				CurrentScore:  cur,
				Delta:         delta,
			})
		}
	}
	return report
}

// VolatilityReport summarizes score fluctuation across a recent scan window.
type VolatilityReport struct {
	Mean       float64
	Stddev     float64
	SampleSize int
	IsVolatile bool
}

// DetectVolatility computes the population mean and standard deviation over
// the most recent scans (newest first, capped at VolatilityWindowSize). With
// fewer than 2 scans there is not enough signal and volatility is false.
func DetectVolatility(scans []models.Scan) VolatilityReport {
	if len(scans) > VolatilityWindowSize {
		scans = scans[:VolatilityWindowSize]
	}

	report := VolatilityReport{SampleSize: len(scans)}
	if len(scans) < 2 {
		return report
	}

	sum := 0.0
	for _, s := range scans {
		sum += float64(s.Score)
	}
	mean := sum / float64(len(scans))

	variance := 0.0
	for _, s := range scans {
		d := float64(s.Score) - mean
		variance += d * d
	}
	variance /= float64(len(scans))

	report.Mean = mean
	report.Stddev = math.Sqrt(variance)
	report.IsVolatile = report.Stddev > VolatilityStddev
	return report
}
