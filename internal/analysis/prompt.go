package analysis

import (
	"fmt"
	"strings"
)

// PromptInput carries everything the prompt may mention. All fields are optional.
type PromptInput struct {
	UserText   string
	ImageCount int
	Language   string
	Conditions string
	History    []string
}

const validationBlock = `STEP 0 - VALIDATE THE INPUT (mandatory, do this before anything else):
Decide whether the supplied content is genuinely medical: a prescription, medicine packaging, or clinical notes.
If it is NOT medical, stop and return exactly this shape with no further analysis:
{"medicines_found": [], "risk_level": "Unknown", "risk_color": "unknown", "alert_message": "The uploaded content does not appear to be a prescription, medicine package, or medical note. Please provide valid medical information.", "alternatives": []}`

const taskBlock = `TASKS:
1. Read the handwriting and printed text to identify every medicine name.
2. Check for drug-drug interactions between the identified medicines.
3. Determine the risk severity: Low, Medium, High, or Critical.
4. Pick the matching risk colour: green (Low), yellow (Medium), orange (High), red or critical (Critical).
5. Write a short, plain-language alert for the patient.
6. Suggest generic or safer alternatives ONLY if the risk is High or Critical.`

const outputBlock = `OUTPUT JSON FORMAT (return only this object, no markdown):
{
    "medicines_found": ["Medicine name", "..."],
    "risk_level": "Low | Medium | High | Critical | Unknown",
    "risk_color": "green | yellow | orange | red | critical | unknown",
    "alert_message": "Simple explanation for the patient",
    "alternatives": ["Alternative 1", "Alternative 2"]
}`

// BuildPrompt renders the instruction document. Optional sections appear
// in a fixed order: notes, history, conditions, language.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Act as a clinical toxicologist reviewing a patient's medicines.\n")
	switch {
	case in.ImageCount == 1:
		b.WriteString("One prescription image is attached.\n")
	case in.ImageCount > 1:
		fmt.Fprintf(&b, "%d prescription images are attached; treat them as one combined medication list.\n", in.ImageCount)
	}
	b.WriteString("\n")
	b.WriteString(validationBlock)
	b.WriteString("\n")

	if text := strings.TrimSpace(in.UserText); text != "" {
		fmt.Fprintf(&b, "\nUSER NOTES: The user also provided this context: '%s'. Consider it in your analysis.\n", text)
	}

	if len(in.History) > 0 {
		b.WriteString("\nPATIENT HISTORY: The patient has previously been recorded taking: ")
		b.WriteString(strings.Join(in.History, ", "))
		b.WriteString(".\nCross-check the newly identified medicines against this history and flag any interaction between new and previous medicines.\n")
	}

	if cond := strings.TrimSpace(in.Conditions); cond != "" {
		fmt.Fprintf(&b, "\nPATIENT CONDITIONS: %s.\nCheck every identified medicine for contraindications with these conditions and raise the risk level accordingly.\n", cond)
	}

	if lang := strings.TrimSpace(in.Language); lang != "" && !strings.EqualFold(lang, DefaultLanguage) {
		fmt.Fprintf(&b, "\nLANGUAGE: Write \"alert_message\" and \"alternatives\" in %s.\nKeep medicine names in \"medicines_found\" exactly as written on the prescription; never translate them. Keep the JSON keys, \"risk_level\" and \"risk_color\" in English.\n", lang)
	}

	b.WriteString("\n")
	b.WriteString(taskBlock)
	b.WriteString("\n\n")
	b.WriteString(outputBlock)
	b.WriteString("\n")
	return b.String()
}
