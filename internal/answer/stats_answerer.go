package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"lawgpt/internal/logging"
	"lawgpt/internal/model"
)

const StatsSourceLabel = "National Judicial Data Grid (NJDG)"

// MetricFamily narrows a statistics question to civil or criminal metrics.
type MetricFamily string

const (
	FamilyAll      MetricFamily = "all"
	FamilyCivil    MetricFamily = "civil"
	FamilyCriminal MetricFamily = "criminal"
)

func (f MetricFamily) likePattern() string {
	switch f {
	case FamilyCivil:
		return "%Civil%"
	case FamilyCriminal:
		return "%Criminal%"
	default:
		return ""
	}
}

func FamilyOf(question string) MetricFamily {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "civil"):
		return FamilyCivil
	case strings.Contains(q, "criminal"):
		return FamilyCriminal
	default:
		return FamilyAll
	}
}

type StatReader interface {
	// LatestPerMetric returns the newest row of every metric matching
	// metricLike (all metrics when empty).
	LatestPerMetric(ctx context.Context, metricLike string) ([]model.JudicialStat, error)
}

type StatsAnswerer struct {
	stats   StatReader
	printer *message.Printer
}

// NewStatsAnswerer formats counts for locale, e.g. "en-IN" groups as 1,10,57,023.
func NewStatsAnswerer(stats StatReader, locale string) *StatsAnswerer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &StatsAnswerer{stats: stats, printer: message.NewPrinter(tag)}
}

// Answer returns ok=false when there is nothing to report, so the caller can
// fall back to law retrieval. Store errors are logged and treated the same way.
func (a *StatsAnswerer) Answer(ctx context.Context, question string) (string, bool) {
	rows, err := a.stats.LatestPerMetric(ctx, FamilyOf(question).likePattern())
	if err != nil {
		logging.FromContext(ctx).Error("stats lookup failed", slog.String("error", err.Error()))
		return "", false
	}
	if len(rows) == 0 {
		return "", false
	}

	asOf := rows[0].FetchedAt
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.FetchedAt.After(asOf) {
			asOf = r.FetchedAt
		}
		parts = append(parts, fmt.Sprintf("%s: %s", r.Metric, a.printer.Sprintf("%d", r.Count)))
	}
	return fmt.Sprintf("As of %s, the records show: %s.", asOf.Format("2 January 2006"), strings.Join(parts, "; ")), true
}
