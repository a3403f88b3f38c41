package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var drugColumns = []string{"name", "category", "use", "side_effects", "caution"}

// DefaultDrugs is used when no seed file is bundled.
var DefaultDrugs = []Drug{
	{Name: "Amoxicillin", Category: "Antibiotic", Use: "Treats bacterial infections.", SideEffects: "Nausea, rash, diarrhea.", Caution: "Finish the full course even if feeling better."},
	{Name: "Ibuprofen", Category: "NSAID", Use: "Relieves pain, fever, and inflammation.", SideEffects: "Stomach upset, heartburn.", Caution: "Take with food. Avoid if you have ulcers."},
	{Name: "Warfarin", Category: "Anticoagulant", Use: "Prevents blood clots.", SideEffects: "Severe bleeding, bruising.", Caution: "Regular blood tests (INR) required. Watch Vitamin K intake."},
	{Name: "Paracetamol", Category: "Analgesic", Use: "Treats mild pain and fever.", SideEffects: "Rare; liver damage in overdose.", Caution: "Do not exceed 4g per day."},
	{Name: "Atorvastatin", Category: "Statin", Use: "Lowers cholesterol.", SideEffects: "Muscle pain, digestive issues.", Caution: "Avoid large amounts of grapefruit juice."},
	{Name: "Metformin", Category: "Antidiabetic", Use: "Treats type 2 diabetes.", SideEffects: "Nausea, stomach upset.", Caution: "Take with meals to reduce side effects."},
	{Name: "Aspirin", Category: "Blood Thinner/NSAID", Use: "Pain relief, heart attack prevention.", SideEffects: "Bleeding, stomach ulcers.", Caution: "Do not mix with other blood thinners without advice."},
	{Name: "Lisinopril", Category: "ACE Inhibitor", Use: "Treats high blood pressure.", SideEffects: "Dry cough, dizziness.", Caution: "Drink plenty of water. Avoid potassium supplements."},
}

// Bootstrap creates the schema and seeds reference data. Both steps are
// idempotent, so it runs on every start.
func Bootstrap(ctx context.Context, s Store, drugFile string, logger zerolog.Logger) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	n, err := SeedDrugs(ctx, s, drugFile)
	if err != nil {
		return fmt.Errorf("seed drugs: %w", err)
	}
	if n > 0 {
		logger.Info().Int("count", n).Str("source", drugFile).Msg("seeded drug reference table")
	}
	return nil
}

// SeedDrugs fills an empty drug table from path, or from DefaultDrugs when
// the file does not exist. It returns the number of rows inserted.
func SeedDrugs(ctx context.Context, s Store, path string) (int, error) {
	count, err := s.CountDrugs(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	drugs := DefaultDrugs
	if strings.TrimSpace(path) != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return 0, err
		default:
			defer f.Close()
			if drugs, err = ParseDrugsCSV(f); err != nil {
				return 0, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if err := s.InsertDrugs(ctx, drugs); err != nil {
		return 0, err
	}
	return len(drugs), nil
}

// ParseDrugsCSV reads rows keyed by the header line. Column order is free;
// name is required, the rest may be missing.
func ParseDrugsCSV(r io.Reader) ([]Drug, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := idx["name"]; !ok {
		return nil, errors.New("missing name column")
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := []Drug{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		vals := make(map[string]string, len(drugColumns))
		for _, col := range drugColumns {
			vals[col] = field(rec, col)
		}
		if vals["name"] == "" {
			continue
		}
		out = append(out, Drug{
			Name:        vals["name"],
			Category:    vals["category"],
			Use:         vals["use"],
			SideEffects: vals["side_effects"],
			Caution:     vals["caution"],
		})
	}
	return out, nil
}
