package answer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"lawgpt/internal/logging"
	"lawgpt/internal/model"
)

const CaseSourceLabel = "eCourts case records"

var cnrFormat = regexp.MustCompile(`^[A-Z0-9]{16}$`)

type CaseRecordReader interface {
	GetByCNR(ctx context.Context, cnr string) (*model.CaseRecord, error)
}

// CaseAnswer is always safe to show to the user. Valid is false when the
// identifier was malformed and no lookup happened.
type CaseAnswer struct {
	Text  string
	CNR   string
	Valid bool
	Found bool
}

type CaseAnswerer struct {
	cases CaseRecordReader
}

func NewCaseAnswerer(cases CaseRecordReader) *CaseAnswerer {
	return &CaseAnswerer{cases: cases}
}

func (a *CaseAnswerer) Lookup(ctx context.Context, raw string) CaseAnswer {
	cnr := strings.ToUpper(strings.TrimSpace(raw))
	if !cnrFormat.MatchString(cnr) {
		return CaseAnswer{
			CNR:  cnr,
			Text: "Invalid CNR format. A CNR is exactly 16 letters and digits, e.g. MHAU010012342023.",
		}
	}

	record, err := a.cases.GetByCNR(ctx, cnr)
	if err != nil {
		logging.FromContext(ctx).Error("case lookup failed", slog.String("cnr", cnr), slog.String("error", err.Error()))
		return CaseAnswer{
			CNR:   cnr,
			Valid: true,
			Text:  "Unable to access case records right now. Please try again later.",
		}
	}
	if record == nil {
		return CaseAnswer{
			CNR:   cnr,
			Valid: true,
			Text:  fmt.Sprintf("No records found for CNR: %s. Please verify the number on the eCourts portal.", cnr),
		}
	}

	return CaseAnswer{
		CNR:   cnr,
		Valid: true,
		Found: true,
		Text: fmt.Sprintf("Case Status for CNR: %s\nPetitioner: %s\nRespondent: %s\nNext Hearing: %s\nStage: %s",
			cnr,
			orUnknown(record.Petitioner),
			orUnknown(record.Respondent),
			orUnknown(record.NextHearingDate),
			orUnknown(record.Stage),
		),
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not available"
	}
	return s
}
