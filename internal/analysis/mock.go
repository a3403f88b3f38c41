package analysis

// MockResult is the canned answer used for demos and tests. It never
// touches a model.
func MockResult() Result {
	return Normalize(RawResult{
		MedicinesFound: []string{"Warfarin", "Aspirin"},
		RiskLevel:      "Critical",
		RiskColor:      "red",
		AlertMessage:   "Warfarin combined with Aspirin sharply raises the risk of serious bleeding. Do not take them together without your doctor's approval.",
		Alternatives:   []string{"Paracetamol (Acetaminophen) for pain relief", "Ask your doctor about a gastro-protective regimen"},
		Disclaimer:     "AI-generated. Verify with a doctor.",
	})
}
