package protocol

import (
	"errors"
	"math"

	"github.com/salud-digital/anthro/internal/assessment"
)

// ErrWeightRequired is returned when a dosed plan is requested without a
// positive weight. Every volume and dose in the protocol scales by
// weight.
var ErrWeightRequired = errors.New("positive weight required for protocol dosing")

// Decide resolves the disposition for the input, applying the precedence
// rules in order. ok is false when no management plan applies: a normal
// classification without complications, an indeterminate one, or severe
// malnutrition whose appetite test is still pending.
func Decide(in Input) (Disposition, bool) {
	if len(in.Complications) > 0 {
		return DispositionHospital, true
	}

	switch in.Classification.Category {
	case assessment.ClassificationSevere:
		if in.AppetiteTestPassed == nil {
			return "", false
		}
		if !*in.AppetiteTestPassed {
			return DispositionHospital, true
		}
		return DispositionAmbulatory, true
	case assessment.ClassificationModerate, assessment.ClassificationAtRisk:
		return DispositionAmbulatory, true
	default:
		return "", false
	}
}

// Compose builds the full treatment plan for the input. A nil plan with a
// nil error means no plan applies (see Decide); that is a valid outcome,
// not a failure.
func Compose(in Input) (*Plan, error) {
	disp, ok := Decide(in)
	if !ok {
		return nil, nil
	}
	if in.WeightKg == nil || *in.WeightKg <= 0 {
		return nil, ErrWeightRequired
	}
	w := *in.WeightKg

	plan := &Plan{
		Disposition:    disp,
		Classification: in.Classification.Category,
		WeightKg:       w,
	}

	var err error
	switch disp {
	case DispositionHospital:
		err = composeHospital(plan, in, w)
	case DispositionAmbulatory:
		err = composeAmbulatory(plan, in, w)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// composeHospital fills the inpatient sections: F-75 feeding when the
// classification has a dosed regimen, then hydration, glycemia and
// adjunct drugs. A child hospitalized for complications alone gets the
// supportive sections without a feeding prescription.
func composeHospital(plan *Plan, in Input, w float64) error {
	if ft, ok := FeedTypeFor(in.Classification.Category, in.Classification.EdemaPresent); ok {
		stab := stabilizationMlPerKg[ft]
		steps := transitionMlPerKg[ft]

		plan.FeedType = ft
		plan.StabilizationVolumePerFeedMl = int(math.Round(w * stab[0]))
		plan.FeedsPerDay = 8
		plan.Day2MlPerKg = stab[1]
		plan.Day3MlPerKg = steps[0]
		plan.TransitionVolumesMl = make([]int, len(steps))
		for i, mlPerKg := range steps {
			plan.TransitionVolumesMl[i] = int(math.Round(w * mlPerKg))
		}
	}

	plan.FluidPlan = composeFluids(in, w)
	plan.GlycemiaPlan = composeGlycemia(in)

	plan.DrugDoses = map[string]DrugDose{
		"ampicillin": {
			DoseMg:    int(math.Round(w * 50)),
			Route:     "IV",
			Frequency: "every 6 hours",
		},
		"folic_acid": {
			DoseMg:    5,
			Route:     "oral",
			Frequency: "single dose",
		},
	}
	plan.DeferredMicronutrients = []string{"iron", "zinc"}
	return nil
}

// composeFluids applies the hydration precedence. Altered consciousness
// wins over everything; a positive dehydration score or active
// diarrhea/vomiting triggers oral rehydration; otherwise hydration is
// monitored only. The ORS regimen follows the malnutrition category:
// severe malnutrition gets the hourly potassium-supplemented scheme
// whatever the dehydration band, everyone else the single 75 ml/kg
// volume.
func composeFluids(in Input, w float64) *FluidPlan {
	if in.HasComplication(ComplicationAlteredConsciousness) {
		return &FluidPlan{
			Kind:    FluidRapidBolus,
			BolusMl: int(math.Round(w * 15)),
		}
	}

	dehydrated := in.Dehydration != nil && in.Dehydration.Score > 0
	if dehydrated || in.HasComplication(ComplicationDiarrheaVomiting) {
		if in.Classification.Category == assessment.ClassificationSevere {
			return &FluidPlan{
				Kind:                  FluidOralRehydration,
				RateMlPerHour:         int(math.Round(w * 10)),
				MaxHours:              12,
				PotassiumSupplemented: true,
			}
		}
		return &FluidPlan{
			Kind:    FluidOralRehydration,
			TotalMl: int(math.Round(w * 75)),
		}
	}

	return &FluidPlan{Kind: FluidMonitoring}
}

// composeGlycemia corrects hypoglycemia below the threshold; the re-check
// interval depends on whether the bolus can go enterally (conscious) or
// must go IV.
func composeGlycemia(in Input) *GlycemiaPlan {
	if in.GlucoseMgDl == nil {
		return nil
	}
	if *in.GlucoseMgDl >= HypoglycemiaThresholdMgDl {
		return &GlycemiaPlan{
			Kind:                 GlycemiaRoutineMonitoring,
			GlucoseMgDl:          in.GlucoseMgDl,
			MonitorIntervalHours: 4,
		}
	}
	return &GlycemiaPlan{
		Kind:                  GlycemiaCorrection,
		GlucoseMgDl:           in.GlucoseMgDl,
		AlteredConsciousness:  in.HasComplication(ComplicationAlteredConsciousness),
		BolusMlPerKg:          5,
		RecheckMinutesIV:      15,
		RecheckMinutesEnteral: 30,
		FollowOnFeedMlPerKg:   3,
	}
}

// composeAmbulatory fills the outpatient section: therapeutic
// ready-to-use food for moderate and severe malnutrition, nutritional
// counseling for children at risk.
func composeAmbulatory(plan *Plan, in Input, w float64) error {
	if in.Classification.Category == assessment.ClassificationAtRisk {
		plan.Counseling = true
		return nil
	}

	day := in.TreatmentDay
	if day < 1 {
		day = 1
	}
	stage, err := rutfStageForDay(in.Classification.Category, day)
	if err != nil {
		return err
	}

	plan.KcalPerKgPerDay = stage.KcalPerKgDay
	plan.KcalPerSachet = stage.KcalPerSachet
	plan.SachetsPerDay = round1(w * stage.KcalPerKgDay / stage.KcalPerSachet)
	return nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
