package analysis

import "strings"

const unknownColor = "unknown"

// riskColors maps the model's colour tag to the display colour.
var riskColors = map[string]string{
	"green":    "#10b981",
	"yellow":   "#f59e0b",
	"orange":   "#f97316",
	"red":      "#ef4444",
	"critical": "#b91c1c",
	"unknown":  "#64748b",
}

var riskLevels = map[string]string{
	"low":      "Low",
	"medium":   "Medium",
	"high":     "High",
	"critical": "Critical",
	"unknown":  "Unknown",
}

// ColorHex resolves a colour name case-insensitively. Unknown or empty
// names resolve to the "unknown" colour.
func ColorHex(name string) (string, string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if hex, ok := riskColors[key]; ok {
		return key, hex
	}
	return unknownColor, riskColors[unknownColor]
}

// Normalize never fails; missing fields become empty values.
func Normalize(raw RawResult) Result {
	color, hex := ColorHex(raw.RiskColor)

	level, ok := riskLevels[strings.ToLower(strings.TrimSpace(raw.RiskLevel))]
	if !ok {
		level = "Unknown"
	}

	return Result{
		MedicinesFound: cleanNames(raw.MedicinesFound),
		RiskLevel:      level,
		RiskColor:      color,
		RiskColorHex:   hex,
		AlertMessage:   strings.TrimSpace(raw.AlertMessage),
		Alternatives:   cleanNames(raw.Alternatives),
		Disclaimer:     strings.TrimSpace(raw.Disclaimer),
	}
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
