package assessment

import "math"

// Classification is the acute-malnutrition severity category
type Classification string

const (
	ClassificationSevere        Classification = "severe"
	ClassificationModerate      Classification = "moderate"
	ClassificationAtRisk        Classification = "at-risk"
	ClassificationNormal        Classification = "normal"
	ClassificationIndeterminate Classification = "indeterminate"
)

// MUAC at or below this marks severe-range wasting, recorded as
// supporting evidence alongside the z-score.
const muacSevereCm = 11.5

// ClassificationResult carries the category together with the inputs that
// produced it, for traceability in clinical notes.
type ClassificationResult struct {
	Category       Classification `json:"category"`
	WeightForLHZ   *float64       `json:"weight_for_lh_z"`
	EdemaPresent   bool           `json:"edema_present"`
	MUACCm         *float64       `json:"muac_cm,omitempty"`
	MUACSevereFlag bool           `json:"muac_severe_flag"`
}

// Classify maps a weight-for-length/height z-score into a malnutrition
// category. Bilateral edema and low MUAC are recorded as supporting
// evidence but do not change the category; the category is driven by the
// z-score threshold alone. A nil or non-finite z-score yields
// indeterminate ("insufficient data"), which is not an error.
func Classify(weightForLHZ *float64, edemaPresent bool, muacCm *float64) ClassificationResult {
	res := ClassificationResult{
		Category:     ClassificationIndeterminate,
		WeightForLHZ: weightForLHZ,
		EdemaPresent: edemaPresent,
		MUACCm:       muacCm,
	}
	if muacCm != nil && *muacCm <= muacSevereCm {
		res.MUACSevereFlag = true
	}

	if weightForLHZ == nil || math.IsNaN(*weightForLHZ) {
		return res
	}

	z := *weightForLHZ
	switch {
	case z <= -3:
		res.Category = ClassificationSevere
	case z <= -2:
		res.Category = ClassificationModerate
	case z <= -1:
		res.Category = ClassificationAtRisk
	default:
		res.Category = ClassificationNormal
	}
	return res
}

// ICD10 returns the ICD-10 (CIE-10) code for the category; empty when the
// category has no code.
func (c Classification) ICD10() string {
	switch c {
	case ClassificationSevere:
		return "E43X"
	case ClassificationModerate:
		return "E44.0"
	case ClassificationAtRisk:
		return "E44.1"
	default:
		return ""
	}
}

// Spanish returns the Spanish diagnostic wording used in clinical notes
func (c Classification) Spanish() string {
	switch c {
	case ClassificationSevere:
		return "Desnutrición Aguda Severa"
	case ClassificationModerate:
		return "Desnutrición Aguda Moderada"
	case ClassificationAtRisk:
		return "Riesgo de Desnutrición Aguda"
	case ClassificationNormal:
		return "Estado Nutricional Normal"
	default:
		return ""
	}
}
