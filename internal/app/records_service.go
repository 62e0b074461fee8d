package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"lawgpt/internal/model"
)

var cnrPattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)

type StatWriter interface {
	Create(ctx context.Context, stat *model.JudicialStat) error
}

type CaseWriter interface {
	Upsert(ctx context.Context, record *model.CaseRecord) error
}

// RecordsService is the write side for the importers that feed the
// statistics and case-status answers.
type RecordsService struct {
	stats StatWriter
	cases CaseWriter
	now   func() time.Time
}

func NewRecordsService(stats StatWriter, cases CaseWriter) *RecordsService {
	return &RecordsService{stats: stats, cases: cases, now: time.Now}
}

type StatInput struct {
	Metric    string
	Count     int64
	FetchedAt time.Time
}

func (s *RecordsService) AddStat(ctx context.Context, in StatInput) (*model.JudicialStat, error) {
	metric := strings.TrimSpace(in.Metric)
	if metric == "" || in.Count < 0 {
		return nil, fmt.Errorf("%w: metric and a non-negative count are required", ErrInvalidInput)
	}
	fetched := in.FetchedAt
	if fetched.IsZero() {
		fetched = s.now()
	}
	stat := &model.JudicialStat{Metric: metric, Count: in.Count, FetchedAt: fetched}
	if err := s.stats.Create(ctx, stat); err != nil {
		return nil, err
	}
	return stat, nil
}

func (s *RecordsService) PutCase(ctx context.Context, record model.CaseRecord) (*model.CaseRecord, error) {
	record.CNR = strings.ToUpper(strings.TrimSpace(record.CNR))
	if !cnrPattern.MatchString(record.CNR) {
		return nil, fmt.Errorf("%w: cnr must be 16 letters and digits", ErrInvalidInput)
	}
	record.Petitioner = strings.TrimSpace(record.Petitioner)
	record.Respondent = strings.TrimSpace(record.Respondent)
	record.NextHearingDate = strings.TrimSpace(record.NextHearingDate)
	record.Stage = strings.TrimSpace(record.Stage)
	if err := s.cases.Upsert(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
