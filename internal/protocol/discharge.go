package protocol

import "fmt"

// DischargePlan is the therapeutic-food ration prescribed at hospital
// discharge, to continue ambulatory treatment at home.
type DischargePlan struct {
	Severity        string  `json:"severity"`
	SachetsPerDay   float64 `json:"sachets_per_day"`
	KcalPerKgPerDay float64 `json:"kcal_per_kg_per_day"`
	KcalPerSachet   float64 `json:"kcal_per_sachet"`
}

// Indexes into the therapeutic-food tables for the stage a child has
// typically reached at discharge.
const (
	dischargeStageSevere   = 2
	dischargeStageModerate = 1
)

// Discharge prescribes the take-home therapeutic food by severity,
// dosing at the table stage a discharged child has reached.
func Discharge(weightKg float64, ft FeedType) (DischargePlan, error) {
	if weightKg <= 0 {
		return DischargePlan{}, ErrWeightRequired
	}
	if _, ok := stabilizationMlPerKg[ft]; !ok {
		return DischargePlan{}, fmt.Errorf("unknown feed type %q", ft)
	}

	severity := rutfSeverity(ft)
	idx := dischargeStageSevere
	if ft == FeedModerate {
		idx = dischargeStageModerate
	}
	stage := rutfStages[severity][idx]

	return DischargePlan{
		Severity:        string(severity),
		SachetsPerDay:   round1(weightKg * stage.KcalPerKgDay / stage.KcalPerSachet),
		KcalPerKgPerDay: stage.KcalPerKgDay,
		KcalPerSachet:   stage.KcalPerSachet,
	}, nil
}
