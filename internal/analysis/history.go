package analysis

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// HistoryWindow is how many of a patient's newest reports feed the prompt.
const HistoryWindow = 10

// MedicineSource returns serialized medicine lists, newest first.
type MedicineSource interface {
	RecentMedicines(ctx context.Context, patientID string, limit int) ([]string, error)
}

// HistoryAggregator folds a patient's recent reports into one sorted,
// de-duplicated list of medicine names.
type HistoryAggregator struct {
	source MedicineSource
	logger zerolog.Logger
}

func NewHistoryAggregator(source MedicineSource, logger zerolog.Logger) *HistoryAggregator {
	return &HistoryAggregator{source: source, logger: logger}
}

// HistoryFor never fails. An empty id, an unknown patient or a storage
// error all produce an empty list.
func (h *HistoryAggregator) HistoryFor(ctx context.Context, patientID string) []string {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || h == nil || h.source == nil {
		return []string{}
	}

	rows, err := h.source.RecentMedicines(ctx, patientID, HistoryWindow)
	if err != nil {
		h.logger.Warn().Err(err).Str("patient_id", patientID).Msg("history lookup failed")
		return []string{}
	}

	seen := make(map[string]struct{})
	for _, raw := range rows {
		var meds []string
		if err := json.Unmarshal([]byte(raw), &meds); err != nil {
			h.logger.Debug().Err(err).Str("patient_id", patientID).Msg("skipping malformed history entry")
			continue
		}
		for _, m := range meds {
			if m = strings.TrimSpace(m); m != "" {
				seen[m] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
